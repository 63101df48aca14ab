package grade

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

// Kinds
const (
	KindExam     = "EXAM"
	KindTest     = "TEST"
	KindHomework = "HOMEWORK"
	KindOral     = "ORAL"
)

const (
	FirstTerm = 1
	LastTerm  = 3
)

var (
	Kinds = []string{KindExam, KindTest, KindHomework, KindOral}

	OrderingFields = core.OrderingFields{
		"term":        "term",
		"kind":        "kind",
		"score":       "score",
		"recorded_at": "recorded_at",
		"created_at":  "created_at",
	}
)

// Grade is a single mark: a numeric Score out of MaxScore, or an Appreciation for maternelle pupils.
type Grade struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id"`
	StudentID    string    `json:"student_id"`
	SubjectID    string    `json:"subject_id"`
	ClassID      string    `json:"class_id"`
	TeacherID    string    `json:"teacher_id,omitempty"`
	Term         int       `json:"term"`
	Kind         string    `json:"kind"`
	Score        *float64  `json:"score"`
	MaxScore     float64   `json:"max_score,omitempty"`
	Appreciation string    `json:"appreciation,omitempty"`
	Comment      string    `json:"comment"`
	RecordedAt   time.Time `json:"recorded_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Normalized returns the score brought to a scale out of max.
func (g Grade) Normalized(max float64) (float64, bool) {
	if g.Score == nil || g.MaxScore == 0 {
		return 0, false
	}
	return *g.Score * max / g.MaxScore, true
}

type NewGrade struct {
	StudentID    string   `json:"student_id" validate:"required,uuid"`
	SubjectID    string   `json:"subject_id" validate:"required,uuid"`
	ClassID      string   `json:"class_id" validate:"omitempty,uuid"` // defaults to the class of the student
	TeacherID    string   `json:"teacher_id" validate:"omitempty,uuid"`
	Term         int      `json:"term" validate:"required,min=1,max=3"`
	Kind         string   `json:"kind" validate:"required,oneof=EXAM TEST HOMEWORK ORAL"`
	Score        *float64 `json:"score" validate:"omitempty,min=0"`
	Appreciation string   `json:"appreciation" validate:"omitempty,oneof=A EA NA"`
	Comment      string   `json:"comment" validate:"omitempty,max=500"`
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.SubjectID = core.CleanString(ng.SubjectID)
	ng.ClassID = core.CleanString(ng.ClassID)
	ng.TeacherID = core.CleanString(ng.TeacherID)
	ng.Kind = core.CleanString(ng.Kind)
	ng.Appreciation = core.CleanString(ng.Appreciation)
	ng.Comment = core.CleanString(ng.Comment)
	return validate.Struct(ng)
}

// UpdateGrade defines what information may be provided to modify an existing Grade.
// Nil fields are left untouched.
type UpdateGrade struct {
	TeacherID    *string  `json:"teacher_id" validate:"omitempty,len=0|uuid"`
	Term         *int     `json:"term" validate:"omitempty,min=1,max=3"`
	Kind         *string  `json:"kind" validate:"omitempty,oneof=EXAM TEST HOMEWORK ORAL"`
	Score        *float64 `json:"score" validate:"omitempty,min=0"`
	Appreciation *string  `json:"appreciation" validate:"omitempty,oneof=A EA NA"`
	Comment      *string  `json:"comment" validate:"omitempty,max=500"`
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.TeacherID = core.CleanStringPtr(ug.TeacherID)
	ug.Kind = core.CleanStringPtr(ug.Kind)
	ug.Appreciation = core.CleanStringPtr(ug.Appreciation)
	ug.Comment = core.CleanStringPtr(ug.Comment)
	return validate.Struct(ug)
}

func (ug UpdateGrade) apply(g *Grade) {
	if ug.TeacherID != nil {
		g.TeacherID = *ug.TeacherID
	}
	if ug.Term != nil {
		g.Term = *ug.Term
	}
	if ug.Kind != nil {
		g.Kind = *ug.Kind
	}
	if ug.Score != nil {
		score := *ug.Score
		g.Score = &score
	}
	if ug.Appreciation != nil {
		g.Appreciation = *ug.Appreciation
	}
	if ug.Comment != nil {
		g.Comment = *ug.Comment
	}
}

type QueryFilter struct {
	StudentID string
	ClassID   string
	SubjectID string
	TeacherID string
	Term      int
	Kind      string
}

func (qf *QueryFilter) Clean() {
	qf.StudentID = core.CleanString(qf.StudentID)
	qf.ClassID = core.CleanString(qf.ClassID)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.Kind = core.CleanString(qf.Kind)
}
