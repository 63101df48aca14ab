package subject

import (
	"regexp"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

var (
	Statuses = []string{StatusActive, StatusInactive}

	OrderingFields = core.OrderingFields{
		"code":        "code",
		"name":        "name",
		"level":       "level",
		"coefficient": "coefficient",
		"status":      "status",
		"created_at":  "created_at",
	}

	codeTag   = "subjectcode"
	codeText  = "code must be 2 to 10 uppercase letters, digits or underscores"
	codeRegex = regexp.MustCompile(`^[A-Z0-9_]{2,10}$`)
)

// InitValidators registers the Subject validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(codeTag, func(fl validator.FieldLevel) bool {
		return codeRegex.MatchString(fl.Field().String())
	})
	core.RegisterCustomTranslation(validate, translator, codeTag, codeText)
}

type Subject struct {
	ID          string    `json:"id" db:"id"`
	SchoolID    string    `json:"school_id" db:"school_id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Level       string    `json:"level" db:"level"`
	Coefficient int       `json:"coefficient" db:"coefficient"`
	Description string    `json:"description" db:"description"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

func (s Subject) IsActive() bool {
	return s.Status == StatusActive
}

type NewSubject struct {
	Code        string `json:"code" validate:"required,subjectcode"`
	Name        string `json:"name" validate:"required,max=100"`
	Level       string `json:"level" validate:"required,edulevel"`
	Coefficient int    `json:"coefficient" validate:"min=0"` // defaults to 1
	Description string `json:"description" validate:"omitempty,max=500"`
}

func (ns *NewSubject) Validate(validate *validator.Validate) error {
	ns.Code = core.CleanString(ns.Code)
	ns.Name = core.CleanString(ns.Name)
	ns.Level = core.CleanString(ns.Level)
	ns.Description = core.CleanString(ns.Description)
	if ns.Coefficient == 0 {
		ns.Coefficient = 1
	}
	if err := validate.Struct(ns); err != nil {
		return err
	}
	if err := core.CheckCoefficient(ns.Level, ns.Coefficient); err != nil {
		return core.NewFieldError("coefficient", err.Error())
	}
	return nil
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
// Nil fields are left untouched.
type UpdateSubject struct {
	Code        *string `json:"code" validate:"omitempty,subjectcode"`
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Level       *string `json:"level" validate:"omitempty,edulevel"`
	Coefficient *int    `json:"coefficient" validate:"omitempty,min=1"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate) error {
	us.Code = core.CleanStringPtr(us.Code)
	us.Name = core.CleanStringPtr(us.Name)
	us.Level = core.CleanStringPtr(us.Level)
	us.Description = core.CleanStringPtr(us.Description)
	return validate.Struct(us)
}

func (us UpdateSubject) apply(s *Subject) {
	if us.Code != nil {
		s.Code = *us.Code
	}
	if us.Name != nil {
		s.Name = *us.Name
	}
	if us.Level != nil {
		s.Level = *us.Level
	}
	if us.Coefficient != nil {
		s.Coefficient = *us.Coefficient
	}
	if us.Description != nil {
		s.Description = *us.Description
	}
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search string
	Level  string
	Status string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
	qf.Status = core.CleanString(qf.Status)
}
