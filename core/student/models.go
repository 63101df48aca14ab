package student

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Genders
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// Statuses
const (
	StatusActive      = "ACTIVE"
	StatusInactive    = "INACTIVE"
	StatusGraduated   = "GRADUATED"
	StatusTransferred = "TRANSFERRED"
)

var (
	Statuses = []string{StatusActive, StatusInactive, StatusGraduated, StatusTransferred}

	OrderingFields = core.OrderingFields{
		"student_id":      "student_id",
		"first_name":      "first_name",
		"last_name":       "last_name",
		"date_of_birth":   "date_of_birth",
		"enrollment_date": "enrollment_date",
		"status":          "status",
		"created_at":      "created_at",
	}
)

type Student struct {
	ID             string    `json:"id"`
	SchoolID       string    `json:"school_id"`
	StudentID      string    `json:"student_id"` // matricule
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Gender         string    `json:"gender"`
	DateOfBirth    core.Date `json:"date_of_birth"`
	ClassID        string    `json:"class_id,omitempty"`
	ParentName     string    `json:"parent_name"`
	ParentPhone    string    `json:"parent_phone"`
	ParentEmail    string    `json:"parent_email"`
	Address        string    `json:"address"`
	Status         string    `json:"status"`
	EnrollmentDate core.Date `json:"enrollment_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

func (s Student) IsActive() bool {
	return s.Status == StatusActive
}

type NewStudent struct {
	StudentID      string    `json:"student_id" validate:"required,matricule"`
	FirstName      string    `json:"first_name" validate:"required,max=100"`
	LastName       string    `json:"last_name" validate:"required,max=100"`
	Gender         string    `json:"gender" validate:"required,oneof=M F"`
	DateOfBirth    core.Date `json:"date_of_birth" validate:"required"`
	ClassID        string    `json:"class_id" validate:"omitempty,uuid"`
	ParentName     string    `json:"parent_name" validate:"omitempty,max=200"`
	ParentPhone    string    `json:"parent_phone" validate:"omitempty,phone"`
	ParentEmail    string    `json:"parent_email" validate:"omitempty,email"`
	Address        string    `json:"address" validate:"omitempty,max=500"`
	EnrollmentDate core.Date `json:"enrollment_date"` // defaults to today
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Gender = core.CleanString(ns.Gender)
	ns.ClassID = core.CleanString(ns.ClassID)
	ns.ParentName = core.CleanString(ns.ParentName)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.ParentEmail = core.CleanString(ns.ParentEmail, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if !ns.DateOfBirth.Before(core.Today()) {
		return core.NewFieldError("date_of_birth", "date_of_birth must be in the past")
	}
	return nil
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched, an empty ClassID withdraws the Student from their class.
type UpdateStudent struct {
	StudentID   *string    `json:"student_id" validate:"omitempty,matricule"`
	FirstName   *string    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName    *string    `json:"last_name" validate:"omitempty,min=1,max=100"`
	Gender      *string    `json:"gender" validate:"omitempty,oneof=M F"`
	DateOfBirth *core.Date `json:"date_of_birth"`
	ClassID     *string    `json:"class_id" validate:"omitempty,len=0|uuid"`
	ParentName  *string    `json:"parent_name" validate:"omitempty,max=200"`
	ParentPhone *string    `json:"parent_phone" validate:"omitempty,len=0|phone"`
	ParentEmail *string    `json:"parent_email" validate:"omitempty,len=0|email"`
	Address     *string    `json:"address" validate:"omitempty,max=500"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.StudentID = core.CleanStringPtr(us.StudentID)
	us.FirstName = core.CleanStringPtr(us.FirstName)
	us.LastName = core.CleanStringPtr(us.LastName)
	us.Gender = core.CleanStringPtr(us.Gender)
	us.ClassID = core.CleanStringPtr(us.ClassID)
	us.ParentName = core.CleanStringPtr(us.ParentName)
	us.ParentPhone = core.CleanStringPtr(us.ParentPhone)
	us.ParentEmail = core.CleanStringPtr(us.ParentEmail, true /* lower */)
	us.Address = core.CleanStringPtr(us.Address)
	if err := validate.Struct(us); err != nil {
		return err
	}
	if us.DateOfBirth != nil && !us.DateOfBirth.Before(core.Today()) {
		return core.NewFieldError("date_of_birth", "date_of_birth must be in the past")
	}
	return nil
}

func (us UpdateStudent) apply(s *Student) {
	if us.StudentID != nil {
		s.StudentID = *us.StudentID
	}
	if us.FirstName != nil {
		s.FirstName = *us.FirstName
	}
	if us.LastName != nil {
		s.LastName = *us.LastName
	}
	if us.Gender != nil {
		s.Gender = *us.Gender
	}
	if us.DateOfBirth != nil {
		s.DateOfBirth = *us.DateOfBirth
	}
	if us.ClassID != nil {
		s.ClassID = *us.ClassID
	}
	if us.ParentName != nil {
		s.ParentName = *us.ParentName
	}
	if us.ParentPhone != nil {
		s.ParentPhone = *us.ParentPhone
	}
	if us.ParentEmail != nil {
		s.ParentEmail = *us.ParentEmail
	}
	if us.Address != nil {
		s.Address = *us.Address
	}
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE GRADUATED TRANSFERRED"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search  string
	ClassID string
	Status  string
	Gender  string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.Status = core.CleanString(qf.Status)
	qf.Gender = core.CleanString(qf.Gender)
}
