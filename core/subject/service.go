package subject

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError("subject not found")
	ErrCodeExists = core.NewConflictError("a subject with this code already exists", "code")
	ErrHasGrades  = core.NewConflictError("subject has grades and cannot be deleted")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		QuerySubjects(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error)
		GetSubject(ctx context.Context, schoolID, id string) (Subject, error)
		UpdateSubject(ctx context.Context, s Subject) (Subject, error)
		// DeleteSubject fails with ErrHasGrades when grades reference the Subject.
		DeleteSubject(ctx context.Context, schoolID, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, schoolID string, ns NewSubject) (Subject, error) {
	now := core.Now()
	s := Subject{
		ID:          uuid.New().String(),
		SchoolID:    schoolID,
		Code:        ns.Code,
		Name:        ns.Name,
		Level:       ns.Level,
		Coefficient: ns.Coefficient,
		Description: ns.Description,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateSubject(ctx, s)
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Subject, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QuerySubjects(ctx, schoolID, filter, OrderingFields.Clean(ordering))
}

func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, schoolID, id)
}

func (svc *Service) Update(ctx context.Context, schoolID, id string, us UpdateSubject) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, schoolID, id)
	if err != nil {
		return Subject{}, errors.Wrap(err, "finding subject")
	}
	us.apply(&s)
	if err = core.CheckCoefficient(s.Level, s.Coefficient); err != nil {
		return Subject{}, core.NewFieldError("coefficient", err.Error())
	}
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateSubject(ctx, s)
}

func (svc *Service) SetStatus(ctx context.Context, schoolID, id, status string) (Subject, error) {
	s, err := svc.repo.GetSubject(ctx, schoolID, id)
	if err != nil {
		return Subject{}, errors.Wrap(err, "finding subject")
	}
	s.Status = status
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateSubject(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	return svc.repo.DeleteSubject(ctx, schoolID, id)
}
