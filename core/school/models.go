package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusSuspended = "SUSPENDED"
)

var (
	Statuses = []string{StatusActive, StatusInactive, StatusSuspended}

	// ReservedSubdomains can never identify a tenant.
	ReservedSubdomains = []string{"www", "api", "admin", "app", "static", "mail"}

	OrderingFields = core.OrderingFields{
		"name":       "name",
		"subdomain":  "subdomain",
		"status":     "status",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
)

// School is a tenant: every other record belongs to exactly one School.
type School struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Subdomain string    `json:"subdomain" db:"subdomain"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	Address   string    `json:"address" db:"address"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (s School) IsActive() bool {
	return s.Status == StatusActive
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name      string `json:"name" validate:"required,max=200"`
	Subdomain string `json:"subdomain" validate:"required,subdomain"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Address   string `json:"address" validate:"omitempty,max=500"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Subdomain = core.CleanString(ns.Subdomain, true /* lower */)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.Address = core.CleanString(ns.Address)
	return validate.Struct(ns)
}

// UpdateSchool defines what information may be provided to modify an existing School.
// Nil fields are left untouched.
type UpdateSchool struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	Subdomain *string `json:"subdomain" validate:"omitempty,subdomain"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,phone"`
	Address   *string `json:"address" validate:"omitempty,max=500"`
}

func (us *UpdateSchool) Validate(validate *validator.Validate) error {
	us.Name = core.CleanStringPtr(us.Name)
	us.Subdomain = core.CleanStringPtr(us.Subdomain, true /* lower */)
	us.Email = core.CleanStringPtr(us.Email, true /* lower */)
	us.Phone = core.CleanStringPtr(us.Phone)
	us.Address = core.CleanStringPtr(us.Address)
	return validate.Struct(us)
}

func (us UpdateSchool) apply(s *School) {
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Subdomain != nil {
		s.Subdomain = *us.Subdomain
	}
	if us.Email != nil {
		s.Email = *us.Email
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if us.Address != nil {
		s.Address = *us.Address
	}
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE SUSPENDED"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string `query:"search"`
	Status string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
}
