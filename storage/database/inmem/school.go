package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/grade"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func schoolColumn(s school.School, col string) interface{} {
	switch col {
	case "name":
		return s.Name
	case "subdomain":
		return s.Subdomain
	case "status":
		return s.Status
	case "created_at":
		return s.CreatedAt
	case "updated_at":
		return s.UpdatedAt
	}
	return nil
}

func (repo *schoolRepository) checkUniqueness(s school.School) error {
	for _, other := range repo.db.schools {
		if other.ID != s.ID && other.Subdomain == s.Subdomain {
			return school.ErrSubdomainExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(s); err != nil {
		return school.School{}, err
	}
	repo.db.schools[s.ID] = s
	return s, nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, qf *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schools := filter(repo.db.schools, func(s school.School) bool {
		if qf == nil {
			return true
		}
		if qf.Search != "" && !matchAny(qf.Search, s.Name, s.Subdomain, s.Email) {
			return false
		}
		return qf.Status == "" || s.Status == qf.Status
	})
	sortRecords(schools, ordering, schoolColumn, asc("name"))
	return schools, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.schools[id]; ok {
		return s, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetSchoolBySubdomain(ctx context.Context, subdomain string) (school.School, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.schools {
		if s.Subdomain == subdomain {
			return s, nil
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, s school.School) (school.School, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.schools[s.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	if err := repo.checkUniqueness(s); err != nil {
		return school.School{}, err
	}
	repo.db.schools[s.ID] = s
	return s, nil
}

// DeleteSchool deletes the School and every record it owns.
func (repo *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.schools[id]; !ok {
		return school.ErrNotFound
	}
	delete(repo.db.schools, id)
	deleteWhere(repo.db.users, func(r user.User) bool { return r.SchoolID == id })
	deleteWhere(repo.db.teachers, func(r teacher.Teacher) bool { return r.SchoolID == id })
	deleteWhere(repo.db.subjects, func(r subject.Subject) bool { return r.SchoolID == id })
	deleteWhere(repo.db.classes, func(r class.Class) bool { return r.SchoolID == id })
	deleteWhere(repo.db.students, func(r student.Student) bool { return r.SchoolID == id })
	deleteWhere(repo.db.grades, func(r grade.Grade) bool { return r.SchoolID == id })
	deleteWhere(repo.db.invoices, func(r billing.Invoice) bool { return r.SchoolID == id })
	deleteWhere(repo.db.payments, func(r billing.Payment) bool { return r.SchoolID == id })
	deleteWhere(repo.db.rooms, func(r planning.Room) bool { return r.SchoolID == id })
	deleteWhere(repo.db.schedules, func(r planning.ScheduleEntry) bool { return r.SchoolID == id })
	return nil
}
