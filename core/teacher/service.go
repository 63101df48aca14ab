package teacher

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound         = core.NewNotFoundError("teacher not found")
	ErrEmailExists      = core.NewConflictError("a teacher with this email already exists", "email")
	ErrEmployeeIDExists = core.NewConflictError("a teacher with this employee id already exists", "employee_id")
)

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		// QueryTeachers does a case-insensitive Search on names, email and employee id.
		QueryTeachers(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error)
		GetTeacher(ctx context.Context, schoolID, id string) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		DeleteTeacher(ctx context.Context, schoolID, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, schoolID string, nt NewTeacher) (Teacher, error) {
	now := core.Now()
	t := Teacher{
		ID:             uuid.New().String(),
		SchoolID:       schoolID,
		EmployeeID:     nt.EmployeeID,
		FirstName:      nt.FirstName,
		LastName:       nt.LastName,
		Email:          nt.Email,
		Phone:          nt.Phone,
		Specialization: nt.Specialization,
		HireDate:       nt.HireDate,
		Status:         StatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.HireDate.IsZero() {
		t.HireDate = core.Today()
	}
	return svc.repo.CreateTeacher(ctx, t)
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Teacher, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryTeachers(ctx, schoolID, filter, OrderingFields.Clean(ordering))
}

func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, schoolID, id)
}

func (svc *Service) Update(ctx context.Context, schoolID, id string, ut UpdateTeacher) (Teacher, error) {
	t, err := svc.repo.GetTeacher(ctx, schoolID, id)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "finding teacher")
	}
	ut.apply(&t)
	t.UpdatedAt = core.Now()
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) SetStatus(ctx context.Context, schoolID, id, status string) (Teacher, error) {
	t, err := svc.repo.GetTeacher(ctx, schoolID, id)
	if err != nil {
		return Teacher{}, errors.Wrap(err, "finding teacher")
	}
	t.Status = status
	t.UpdatedAt = core.Now()
	return svc.repo.UpdateTeacher(ctx, t)
}

// Delete removes a Teacher: their schedule entries go with them, classes and grades lose the reference.
func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	return svc.repo.DeleteTeacher(ctx, schoolID, id)
}
