package school

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("school not found")
	ErrSubdomainExists = core.NewConflictError("a school with this subdomain already exists", "subdomain")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, s School) (School, error)
		QuerySchools(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		GetSchoolBySubdomain(ctx context.Context, subdomain string) (School, error)
		UpdateSchool(ctx context.Context, s School) (School, error)
		DeleteSchool(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := core.Now()
	s := School{
		ID:        uuid.New().String(),
		Name:      ns.Name,
		Subdomain: ns.Subdomain,
		Email:     ns.Email,
		Phone:     ns.Phone,
		Address:   ns.Address,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSchool(ctx, s)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]School, error) {
	return svc.repo.QuerySchools(ctx, filter, OrderingFields.Clean(ordering))
}

func (svc *Service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, id)
}

// Resolve finds the tenant identified by subdomain.
func (svc *Service) Resolve(ctx context.Context, subdomain string) (School, error) {
	subdomain = core.CleanString(subdomain, true /* lower */)
	if !ValidSubdomain(subdomain) {
		return School{}, ErrNotFound
	}
	return svc.repo.GetSchoolBySubdomain(ctx, subdomain)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateSchool) (School, error) {
	s, err := svc.repo.GetSchool(ctx, id)
	if err != nil {
		return School{}, errors.Wrap(err, "finding school")
	}
	us.apply(&s)
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateSchool(ctx, s)
}

func (svc *Service) SetStatus(ctx context.Context, id, status string) (School, error) {
	s, err := svc.repo.GetSchool(ctx, id)
	if err != nil {
		return School{}, errors.Wrap(err, "finding school")
	}
	s.Status = status
	s.UpdatedAt = core.Now()
	return svc.repo.UpdateSchool(ctx, s)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteSchool(ctx, id)
}
