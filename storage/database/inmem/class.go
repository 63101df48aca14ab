package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/grade"
	"github.com/trezcool/academia/core/planning"
)

type classRepository struct {
	db *DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func classColumn(c class.Class, col string) interface{} {
	switch col {
	case "name":
		return c.Name
	case "level":
		return c.Level
	case "section":
		return c.Section
	case "academic_year":
		return c.AcademicYear
	case "capacity":
		return c.Capacity
	case "status":
		return c.Status
	case "created_at":
		return c.CreatedAt
	}
	return nil
}

func (repo *classRepository) checkUniqueness(c class.Class) error {
	for _, other := range repo.db.classes {
		if other.ID != c.ID && other.SchoolID == c.SchoolID && other.Name == c.Name && other.AcademicYear == c.AcademicYear {
			return class.ErrNameExists
		}
	}
	return nil
}

func (repo *classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(c); err != nil {
		return class.Class{}, err
	}
	repo.db.classes[c.ID] = c
	return c, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, schoolID string, qf *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := filter(repo.db.classes, func(c class.Class) bool {
		if c.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		if qf.Search != "" && !matchAny(qf.Search, c.Name, c.Section) {
			return false
		}
		if qf.Level != "" && c.Level != qf.Level {
			return false
		}
		if qf.AcademicYear != "" && c.AcademicYear != qf.AcademicYear {
			return false
		}
		if qf.TeacherID != "" && c.HomeroomTeacherID != qf.TeacherID {
			return false
		}
		return qf.Status == "" || c.Status == qf.Status
	})
	sortRecords(classes, ordering, classColumn, desc("academic_year"), asc("name"))
	return classes, nil
}

func (repo *classRepository) GetClass(ctx context.Context, schoolID, id string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.classes[id]; ok && c.SchoolID == schoolID {
		return c, nil
	}
	return class.Class{}, class.ErrNotFound
}

func (repo *classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.classes[c.ID]; !ok || orig.SchoolID != c.SchoolID {
		return class.Class{}, class.ErrNotFound
	}
	if err := repo.checkUniqueness(c); err != nil {
		return class.Class{}, err
	}
	repo.db.classes[c.ID] = c
	return c, nil
}

// DeleteClass fails with class.ErrHasStudents while students reference the Class.
// Its grades and schedule entries go with it.
func (repo *classRepository) DeleteClass(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if c, ok := repo.db.classes[id]; !ok || c.SchoolID != schoolID {
		return class.ErrNotFound
	}
	for _, s := range repo.db.students {
		if s.ClassID == id {
			return class.ErrHasStudents
		}
	}
	delete(repo.db.classes, id)
	deleteWhere(repo.db.grades, func(g grade.Grade) bool { return g.ClassID == id })
	deleteWhere(repo.db.schedules, func(e planning.ScheduleEntry) bool { return e.ClassID == id })
	return nil
}

func (repo *classRepository) CountStudents(ctx context.Context, schoolID, id string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, s := range repo.db.students {
		if s.SchoolID == schoolID && s.ClassID == id {
			n++
		}
	}
	return n, nil
}
