package student

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("student not found")
	ErrStudentIDExists = core.NewConflictError("a student with this student id already exists", "student_id")
	ErrClassNotFound   = core.NewFieldError("class_id", "class not found")
	ErrClassFull       = core.NewFieldError("class_id", "class is full")
	ErrClassArchived   = core.NewFieldError("class_id", "class is archived")
)

type (
	Repository interface {
		// CreateStudent fails with ErrStudentIDExists when the matricule is taken in the School.
		CreateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudents does a case-insensitive Search on names, student id and parent name.
		QueryStudents(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		GetStudent(ctx context.Context, schoolID, id string) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// EnrollStudent saves s, inserting it when isNew, once seat accepts its class.
		// No other enrollment in the class may happen between the head count and the save.
		// It fails with class.ErrNotFound when the class is not in the School.
		EnrollStudent(ctx context.Context, s Student, isNew bool, seat SeatFunc) (Student, error)
		// DeleteStudent also deletes the grades, invoices and payments of the Student.
		DeleteStudent(ctx context.Context, schoolID, id string) error
	}

	// SeatFunc checks a Student may join c, which already holds enrolled other students.
	SeatFunc func(c class.Class, enrolled int) error

	// ClassFinder is satisfied by *class.Service.
	ClassFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (class.Class, error)
	}

	Service struct {
		repo    Repository
		classes ClassFinder
	}
)

func NewService(repo Repository, classes ClassFinder) *Service {
	return &Service{repo: repo, classes: classes}
}

// enroll saves s in its class: the class must be active, have a free seat and fit the age of s.
func (svc *Service) enroll(ctx context.Context, s Student, isNew bool) (Student, error) {
	at := s.EnrollmentDate
	if at.IsZero() {
		at = core.Today()
	}
	saved, err := svc.repo.EnrollStudent(ctx, s, isNew, func(c class.Class, enrolled int) error {
		if !c.IsActive() {
			return ErrClassArchived
		}
		if enrolled >= c.Capacity {
			return ErrClassFull
		}
		if err := core.CheckAge(c.Level, s.DateOfBirth.Time, at.Time); err != nil {
			return core.NewFieldError("date_of_birth", err.Error())
		}
		return nil
	})
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return Student{}, ErrClassNotFound
		}
		return Student{}, err
	}
	return saved, nil
}

func (svc *Service) Create(ctx context.Context, schoolID string, ns NewStudent) (Student, error) {
	now := core.Now()
	s := Student{
		ID:             uuid.New().String(),
		SchoolID:       schoolID,
		StudentID:      ns.StudentID,
		FirstName:      ns.FirstName,
		LastName:       ns.LastName,
		Gender:         ns.Gender,
		DateOfBirth:    ns.DateOfBirth,
		ClassID:        ns.ClassID,
		ParentName:     ns.ParentName,
		ParentPhone:    ns.ParentPhone,
		ParentEmail:    ns.ParentEmail,
		Address:        ns.Address,
		Status:         StatusActive,
		EnrollmentDate: ns.EnrollmentDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if s.EnrollmentDate.IsZero() {
		s.EnrollmentDate = core.Today()
	}
	if s.ClassID != "" {
		return svc.enroll(ctx, s, true)
	}
	return svc.repo.CreateStudent(ctx, s)
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryStudents(ctx, schoolID, filter, OrderingFields.Clean(ordering))
}

func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, schoolID, id)
}

func (svc *Service) Update(ctx context.Context, schoolID, id string, us UpdateStudent) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, schoolID, id)
	if err != nil {
		return Student{}, errors.Wrap(err, "finding student")
	}
	prevClass := s.ClassID
	us.apply(&s)

	s.UpdatedAt = core.Now()
	switch {
	case s.ClassID != "" && s.ClassID != prevClass:
		return svc.enroll(ctx, s, false)
	case s.ClassID != "" && us.DateOfBirth != nil:
		c, err := svc.classes.GetByID(ctx, schoolID, s.ClassID)
		if err != nil {
			return Student{}, errors.Wrap(err, "finding class")
		}
		if err = core.CheckAge(c.Level, s.DateOfBirth.Time, s.EnrollmentDate.Time); err != nil {
			return Student{}, core.NewFieldError("date_of_birth", err.Error())
		}
	}
	return svc.repo.UpdateStudent(ctx, s)
}

// SetStatus changes the status of a Student. Graduated or transferred students leave their class.
func (svc *Service) SetStatus(ctx context.Context, schoolID, id, status string) (Student, error) {
	s, err := svc.repo.GetStudent(ctx, schoolID, id)
	if err != nil {
		return Student{}, errors.Wrap(err, "finding student")
	}
	s.Status = status
	if status == StatusGraduated || status == StatusTransferred {
		s.ClassID = ""
	}
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateStudent(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	return svc.repo.DeleteStudent(ctx, schoolID, id)
}
