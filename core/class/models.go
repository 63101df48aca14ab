package class

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Statuses
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)

var (
	Statuses = []string{StatusActive, StatusArchived}

	OrderingFields = core.OrderingFields{
		"name":          "name",
		"level":         "level",
		"section":       "section",
		"academic_year": "academic_year",
		"capacity":      "capacity",
		"status":        "status",
		"created_at":    "created_at",
	}
)

type Class struct {
	ID                string    `json:"id"`
	SchoolID          string    `json:"school_id"`
	Name              string    `json:"name"`
	Level             string    `json:"level"`
	Section           string    `json:"section"`
	AcademicYear      string    `json:"academic_year"`
	Capacity          int       `json:"capacity"`
	HomeroomTeacherID string    `json:"homeroom_teacher_id,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (c Class) IsActive() bool {
	return c.Status == StatusActive
}

// Scale is the grading scale used for the pupils of c.
func (c Class) Scale() core.GradingScale {
	gs, _ := core.ScaleFor(c.Level)
	return gs
}

func checkCapacity(level string, capacity int) error {
	if max := core.MaxCapacity(level); capacity > max {
		return core.NewFieldError("capacity", fmt.Sprintf("capacity must not exceed %d for %s", max, level))
	}
	return nil
}

type NewClass struct {
	Name              string `json:"name" validate:"required,max=50"`
	Level             string `json:"level" validate:"required,edulevel"`
	Section           string `json:"section" validate:"omitempty,max=20"`
	AcademicYear      string `json:"academic_year" validate:"required,acadyear"`
	Capacity          int    `json:"capacity" validate:"min=0"` // defaults to the level maximum
	HomeroomTeacherID string `json:"homeroom_teacher_id" validate:"omitempty,uuid"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Level = core.CleanString(nc.Level)
	nc.Section = core.CleanString(nc.Section)
	nc.AcademicYear = core.CleanString(nc.AcademicYear)
	nc.HomeroomTeacherID = core.CleanString(nc.HomeroomTeacherID)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	if nc.Capacity == 0 {
		nc.Capacity = core.MaxCapacity(nc.Level)
	}
	return checkCapacity(nc.Level, nc.Capacity)
}

// UpdateClass defines what information may be provided to modify an existing Class.
// Nil fields are left untouched, an empty HomeroomTeacherID unsets the homeroom teacher.
type UpdateClass struct {
	Name              *string `json:"name" validate:"omitempty,min=1,max=50"`
	Level             *string `json:"level" validate:"omitempty,edulevel"`
	Section           *string `json:"section" validate:"omitempty,max=20"`
	AcademicYear      *string `json:"academic_year" validate:"omitempty,acadyear"`
	Capacity          *int    `json:"capacity" validate:"omitempty,min=1"`
	HomeroomTeacherID *string `json:"homeroom_teacher_id" validate:"omitempty,len=0|uuid"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanStringPtr(uc.Name)
	uc.Level = core.CleanStringPtr(uc.Level)
	uc.Section = core.CleanStringPtr(uc.Section)
	uc.AcademicYear = core.CleanStringPtr(uc.AcademicYear)
	uc.HomeroomTeacherID = core.CleanStringPtr(uc.HomeroomTeacherID)
	return validate.Struct(uc)
}

func (uc UpdateClass) apply(c *Class) {
	if uc.Name != nil {
		c.Name = *uc.Name
	}
	if uc.Level != nil {
		c.Level = *uc.Level
	}
	if uc.Section != nil {
		c.Section = *uc.Section
	}
	if uc.AcademicYear != nil {
		c.AcademicYear = *uc.AcademicYear
	}
	if uc.Capacity != nil {
		c.Capacity = *uc.Capacity
	}
	if uc.HomeroomTeacherID != nil {
		c.HomeroomTeacherID = *uc.HomeroomTeacherID
	}
}

type UpdateStatus struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE ARCHIVED"`
}

func (us *UpdateStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type QueryFilter struct {
	Search       string
	Level        string
	AcademicYear string
	Status       string
	TeacherID    string // homeroom teacher
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Level = core.CleanString(qf.Level)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.Status = core.CleanString(qf.Status)
	qf.TeacherID = core.CleanString(qf.TeacherID)
}
