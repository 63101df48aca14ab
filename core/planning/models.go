package planning

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Room kinds
const (
	KindClassroom = "CLASSROOM"
	KindLab       = "LAB"
	KindGym       = "GYM"
	KindHall      = "HALL"
)

// Room statuses
const (
	StatusActive   = "ACTIVE"
	StatusInactive = "INACTIVE"
)

// School day bounds, in minutes since midnight.
const (
	DayStart = 7 * 60
	DayEnd   = 19 * 60
)

var (
	RoomKinds = []string{KindClassroom, KindLab, KindGym, KindHall}

	// Days are numbered from Monday (1) to Saturday (6).
	Days = map[int]string{1: "MONDAY", 2: "TUESDAY", 3: "WEDNESDAY", 4: "THURSDAY", 5: "FRIDAY", 6: "SATURDAY"}

	RoomOrderingFields = core.OrderingFields{
		"name":       "name",
		"capacity":   "capacity",
		"kind":       "kind",
		"status":     "status",
		"created_at": "created_at",
	}
)

type Room struct {
	ID        string    `json:"id" db:"id"`
	SchoolID  string    `json:"school_id" db:"school_id"`
	Name      string    `json:"name" db:"name"`
	Capacity  int       `json:"capacity" db:"capacity"`
	Kind      string    `json:"kind" db:"kind"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (r Room) IsActive() bool {
	return r.Status == StatusActive
}

type NewRoom struct {
	Name     string `json:"name" validate:"required,max=50"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=1000"`
	Kind     string `json:"kind" validate:"omitempty,oneof=CLASSROOM LAB GYM HALL"` // defaults to CLASSROOM
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Kind = core.CleanString(nr.Kind)
	if nr.Kind == "" {
		nr.Kind = KindClassroom
	}
	return validate.Struct(nr)
}

// UpdateRoom defines what information may be provided to modify an existing Room.
// Nil fields are left untouched.
type UpdateRoom struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=50"`
	Capacity *int    `json:"capacity" validate:"omitempty,min=1,max=1000"`
	Kind     *string `json:"kind" validate:"omitempty,oneof=CLASSROOM LAB GYM HALL"`
}

func (ur *UpdateRoom) Validate(validate *validator.Validate) error {
	ur.Name = core.CleanStringPtr(ur.Name)
	ur.Kind = core.CleanStringPtr(ur.Kind)
	return validate.Struct(ur)
}

func (ur UpdateRoom) apply(r *Room) {
	if ur.Name != nil {
		r.Name = *ur.Name
	}
	if ur.Capacity != nil {
		r.Capacity = *ur.Capacity
	}
	if ur.Kind != nil {
		r.Kind = *ur.Kind
	}
}

type UpdateRoomStatus struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

func (us *UpdateRoomStatus) Validate(validate *validator.Validate) error {
	us.Status = core.CleanString(us.Status)
	return validate.Struct(us)
}

type RoomFilter struct {
	Search      string
	Kind        string
	Status      string
	MinCapacity int
}

func (qf *RoomFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Kind = core.CleanString(qf.Kind)
	qf.Status = core.CleanString(qf.Status)
}

// ScheduleEntry is a weekly slot: a class studies a subject with a teacher, optionally in a room.
type ScheduleEntry struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id"`
	ClassID      string    `json:"class_id"`
	SubjectID    string    `json:"subject_id"`
	TeacherID    string    `json:"teacher_id"`
	RoomID       string    `json:"room_id,omitempty"`
	DayOfWeek    int       `json:"day_of_week"`
	StartTime    string    `json:"start_time"` // HH:MM
	EndTime      string    `json:"end_time"`   // HH:MM
	AcademicYear string    `json:"academic_year"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// minutes converts a validated HH:MM time.
func minutes(hhmm string) int {
	var h, m int
	_, _ = fmt.Sscanf(hhmm, "%d:%d", &h, &m)
	return h*60 + m
}

// Overlaps reports whether e and other share some time on the same day.
func (e ScheduleEntry) Overlaps(other ScheduleEntry) bool {
	if e.DayOfWeek != other.DayOfWeek || e.AcademicYear != other.AcademicYear {
		return false
	}
	return minutes(e.StartTime) < minutes(other.EndTime) && minutes(other.StartTime) < minutes(e.EndTime)
}

func (e ScheduleEntry) Slot() string {
	return fmt.Sprintf("%s %s-%s", Days[e.DayOfWeek], e.StartTime, e.EndTime)
}

func checkTimes(e ScheduleEntry) error {
	start, end := minutes(e.StartTime), minutes(e.EndTime)
	if start >= end {
		return core.NewFieldError("end_time", "end_time must be after start_time")
	}
	if start < DayStart || end > DayEnd {
		return core.NewFieldError("start_time", "lessons must take place between 07:00 and 19:00")
	}
	return nil
}

type NewScheduleEntry struct {
	ClassID      string `json:"class_id" validate:"required,uuid"`
	SubjectID    string `json:"subject_id" validate:"required,uuid"`
	TeacherID    string `json:"teacher_id" validate:"required,uuid"`
	RoomID       string `json:"room_id" validate:"omitempty,uuid"`
	DayOfWeek    int    `json:"day_of_week" validate:"required,min=1,max=6"`
	StartTime    string `json:"start_time" validate:"required,hhmm"`
	EndTime      string `json:"end_time" validate:"required,hhmm"`
	AcademicYear string `json:"academic_year" validate:"omitempty,acadyear"` // defaults to the year of the class
}

func (ne *NewScheduleEntry) Validate(validate *validator.Validate) error {
	ne.ClassID = core.CleanString(ne.ClassID)
	ne.SubjectID = core.CleanString(ne.SubjectID)
	ne.TeacherID = core.CleanString(ne.TeacherID)
	ne.RoomID = core.CleanString(ne.RoomID)
	ne.StartTime = core.CleanString(ne.StartTime)
	ne.EndTime = core.CleanString(ne.EndTime)
	ne.AcademicYear = core.CleanString(ne.AcademicYear)
	return validate.Struct(ne)
}

// UpdateScheduleEntry defines what information may be provided to modify an existing ScheduleEntry.
// Nil fields are left untouched, an empty RoomID frees the room.
type UpdateScheduleEntry struct {
	SubjectID *string `json:"subject_id" validate:"omitempty,uuid"`
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid"`
	RoomID    *string `json:"room_id" validate:"omitempty,len=0|uuid"`
	DayOfWeek *int    `json:"day_of_week" validate:"omitempty,min=1,max=6"`
	StartTime *string `json:"start_time" validate:"omitempty,hhmm"`
	EndTime   *string `json:"end_time" validate:"omitempty,hhmm"`
}

func (ue *UpdateScheduleEntry) Validate(validate *validator.Validate) error {
	ue.SubjectID = core.CleanStringPtr(ue.SubjectID)
	ue.TeacherID = core.CleanStringPtr(ue.TeacherID)
	ue.RoomID = core.CleanStringPtr(ue.RoomID)
	ue.StartTime = core.CleanStringPtr(ue.StartTime)
	ue.EndTime = core.CleanStringPtr(ue.EndTime)
	return validate.Struct(ue)
}

func (ue UpdateScheduleEntry) apply(e *ScheduleEntry) {
	if ue.SubjectID != nil {
		e.SubjectID = *ue.SubjectID
	}
	if ue.TeacherID != nil {
		e.TeacherID = *ue.TeacherID
	}
	if ue.RoomID != nil {
		e.RoomID = *ue.RoomID
	}
	if ue.DayOfWeek != nil {
		e.DayOfWeek = *ue.DayOfWeek
	}
	if ue.StartTime != nil {
		e.StartTime = *ue.StartTime
	}
	if ue.EndTime != nil {
		e.EndTime = *ue.EndTime
	}
}

// ScheduleFilter entries are always sorted by day then start time.
type ScheduleFilter struct {
	ClassID      string
	TeacherID    string
	RoomID       string
	DayOfWeek    int
	AcademicYear string
}

func (qf *ScheduleFilter) Clean() {
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.RoomID = core.CleanString(qf.RoomID)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
}
