package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/teacher"
)

type teacherRepository struct {
	db *DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func teacherColumn(t teacher.Teacher, col string) interface{} {
	switch col {
	case "employee_id":
		return t.EmployeeID
	case "first_name":
		return t.FirstName
	case "last_name":
		return t.LastName
	case "email":
		return t.Email
	case "hire_date":
		return t.HireDate
	case "status":
		return t.Status
	case "created_at":
		return t.CreatedAt
	}
	return nil
}

func (repo *teacherRepository) checkUniqueness(t teacher.Teacher) error {
	for _, other := range repo.db.teachers {
		if other.ID == t.ID || other.SchoolID != t.SchoolID {
			continue
		}
		if other.EmployeeID == t.EmployeeID {
			return teacher.ErrEmployeeIDExists
		}
		if other.Email == t.Email {
			return teacher.ErrEmailExists
		}
	}
	return nil
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(t); err != nil {
		return teacher.Teacher{}, err
	}
	repo.db.teachers[t.ID] = t
	return t, nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, schoolID string, qf *teacher.QueryFilter, ordering []core.DBOrdering) ([]teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teachers := filter(repo.db.teachers, func(t teacher.Teacher) bool {
		if t.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		if qf.Search != "" && !matchAny(qf.Search, t.FirstName, t.LastName, t.Email, t.EmployeeID) {
			return false
		}
		if qf.Specialization != "" && !containsFold(t.Specialization, qf.Specialization) {
			return false
		}
		return qf.Status == "" || t.Status == qf.Status
	})
	sortRecords(teachers, ordering, teacherColumn, asc("last_name"), asc("first_name"))
	return teachers, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, schoolID, id string) (teacher.Teacher, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.teachers[id]; ok && t.SchoolID == schoolID {
		return t, nil
	}
	return teacher.Teacher{}, teacher.ErrNotFound
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.teachers[t.ID]; !ok || orig.SchoolID != t.SchoolID {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	if err := repo.checkUniqueness(t); err != nil {
		return teacher.Teacher{}, err
	}
	repo.db.teachers[t.ID] = t
	return t, nil
}

// DeleteTeacher drops the schedule entries of the Teacher and unlinks its classes and grades.
func (repo *teacherRepository) DeleteTeacher(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if t, ok := repo.db.teachers[id]; !ok || t.SchoolID != schoolID {
		return teacher.ErrNotFound
	}
	delete(repo.db.teachers, id)

	for cid, c := range repo.db.classes {
		if c.HomeroomTeacherID == id {
			c.HomeroomTeacherID = ""
			repo.db.classes[cid] = c
		}
	}
	for gid, g := range repo.db.grades {
		if g.TeacherID == id {
			g.TeacherID = ""
			repo.db.grades[gid] = g
		}
	}
	deleteWhere(repo.db.schedules, func(e planning.ScheduleEntry) bool { return e.TeacherID == id })
	return nil
}
