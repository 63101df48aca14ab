package teacher

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
	StatusOnLeave  = "ON_LEAVE"
)

var (
	Statuses = []string{StatusActive, StatusInactive, StatusOnLeave}

	OrderingFields = core.OrderingFields{
		"employee_id": "employee_id",
		"first_name":  "first_name",
		"last_name":   "last_name",
		"email":       "email",
		"hire_date":   "hire_date",
		"status":      "status",
		"created_at":  "created_at",
	}
)

type Teacher struct {
	ID             string    `json:"id" db:"id"`
	SchoolID       string    `json:"school_id" db:"school_id"`
	EmployeeID     string    `json:"employee_id" db:"employee_id"`
	FirstName      string    `json:"first_name" db:"first_name"`
	LastName       string    `json:"last_name" db:"last_name"`
	Email          string    `json:"email" db:"email"`
	Phone          string    `json:"phone" db:"phone"`
	Specialization string    `json:"specialization" db:"specialization"`
	HireDate       core.Date `json:"hire_date" db:"hire_date"`
	Status         string    `json:"status" db:"status"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

func (t Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

func (t Teacher) IsActive() bool {
	return t.Status == StatusActive
}

type NewTeacher struct {
	EmployeeID     string    `json:"employee_id" validate:"required,matricule"`
	FirstName      string    `json:"first_name" validate:"required,max=100"`
	LastName       string    `json:"last_name" validate:"required,max=100"`
	Email          string    `json:"email" validate:"required,email"`
	Phone          string    `json:"phone" validate:"omitempty,phone"`
	Specialization string    `json:"specialization" validate:"omitempty,max=100"`
	HireDate       core.Date `json:"hire_date"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.EmployeeID = core.CleanString(nt.EmployeeID)
	nt.FirstName = core.CleanString(nt.FirstName)
	nt.LastName = core.CleanString(nt.LastName)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
	nt.Specialization = core.CleanString(nt.Specialization)
	return validate.Struct(nt)
}

// UpdateTeacher defines what information may be provided to modify an existing Teacher.
// Nil fields are left untouched.
type UpdateTeacher struct {
	EmployeeID     *string    `json:"employee_id" validate:"omitempty,matricule"`
	FirstName      *string    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string    `json:"last_name" validate:"omitempty,min=1,max=100"`
	Email          *string    `json:"email" validate:"omitempty,email"`
	Phone          *string    `json:"phone" validate:"omitempty,phone"`
	Specialization *string    `json:"specialization" validate:"omitempty,max=100"`
	HireDate       *core.Date `json:"hire_date"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	ut.EmployeeID = core.CleanStringPtr(ut.EmployeeID)
	ut.FirstName = core.CleanStringPtr(ut.FirstName)
	ut.LastName = core.CleanStringPtr(ut.LastName)
	ut.Email = core.CleanStringPtr(ut.Email, true /* lower */)
	ut.Phone = core.CleanStringPtr(ut.Phone)
	ut.Specialization = core.CleanStringPtr(ut.Specialization)
	return validate.Struct(ut)
}

func (ut UpdateTeacher) apply(t *Teacher) {
	if ut.EmployeeID != nil {
		t.EmployeeID = *ut.EmployeeID
	}
	if ut.FirstName != nil {
		t.FirstName = *ut.FirstName
	}
	if ut.LastName != nil {
		t.LastName = *ut.LastName
	}
	if ut.Email != nil {
		t.Email = *ut.Email
	}
	if ut.Phone != nil {
		t.Phone = *ut.Phone
	}
	if ut.Specialization != nil {
		t.Specialization = *ut.Specialization
	}
	if ut.HireDate != nil {
		t.HireDate = *ut.HireDate
	}
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE ON_LEAVE"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search         string
	Status         string
	Specialization string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status)
	qf.Specialization = core.CleanString(qf.Specialization)
}
