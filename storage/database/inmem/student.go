package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/grade"
	"github.com/trezcool/academia/core/student"
)

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func studentColumn(s student.Student, col string) interface{} {
	switch col {
	case "student_id":
		return s.StudentID
	case "first_name":
		return s.FirstName
	case "last_name":
		return s.LastName
	case "date_of_birth":
		return s.DateOfBirth
	case "enrollment_date":
		return s.EnrollmentDate
	case "status":
		return s.Status
	case "created_at":
		return s.CreatedAt
	}
	return nil
}

func (repo *studentRepository) checkUniqueness(s student.Student) error {
	for _, other := range repo.db.students {
		if other.ID != s.ID && other.SchoolID == s.SchoolID && other.StudentID == s.StudentID {
			return student.ErrStudentIDExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(s); err != nil {
		return student.Student{}, err
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, schoolID string, qf *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := filter(repo.db.students, func(s student.Student) bool {
		if s.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		if qf.Search != "" && !matchAny(qf.Search, s.FirstName, s.LastName, s.StudentID, s.ParentName) {
			return false
		}
		if qf.ClassID != "" && s.ClassID != qf.ClassID {
			return false
		}
		if qf.Gender != "" && s.Gender != qf.Gender {
			return false
		}
		return qf.Status == "" || s.Status == qf.Status
	})
	sortRecords(students, ordering, studentColumn, asc("last_name"), asc("first_name"), asc("student_id"))
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, schoolID, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.students[id]; ok && s.SchoolID == schoolID {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.students[s.ID]; !ok || orig.SchoolID != s.SchoolID {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.checkUniqueness(s); err != nil {
		return student.Student{}, err
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) EnrollStudent(ctx context.Context, s student.Student, isNew bool, seat student.SeatFunc) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.classes[s.ClassID]
	if !ok || c.SchoolID != s.SchoolID {
		return student.Student{}, class.ErrNotFound
	}
	enrolled := 0
	for _, other := range repo.db.students {
		if other.ID != s.ID && other.SchoolID == s.SchoolID && other.ClassID == c.ID {
			enrolled++
		}
	}
	if err := seat(c, enrolled); err != nil {
		return student.Student{}, err
	}

	if !isNew {
		if orig, ok := repo.db.students[s.ID]; !ok || orig.SchoolID != s.SchoolID {
			return student.Student{}, student.ErrNotFound
		}
	}
	if err := repo.checkUniqueness(s); err != nil {
		return student.Student{}, err
	}
	repo.db.students[s.ID] = s
	return s, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if s, ok := repo.db.students[id]; !ok || s.SchoolID != schoolID {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	deleteWhere(repo.db.grades, func(g grade.Grade) bool { return g.StudentID == id })
	deleteWhere(repo.db.invoices, func(inv billing.Invoice) bool { return inv.StudentID == id })
	deleteWhere(repo.db.payments, func(p billing.Payment) bool { return p.StudentID == id })
	return nil
}
