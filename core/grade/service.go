package grade

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("grade not found")

	errStudentNotFound = core.NewFieldError("student_id", "student not found")
	errNotEnrolled     = core.NewFieldError("class_id", "student is not enrolled in a class")
	errClassNotFound   = core.NewFieldError("class_id", "class not found")
	errSubjectNotFound = core.NewFieldError("subject_id", "subject not found")
	errTeacherNotFound = core.NewFieldError("teacher_id", "teacher not found")
	errLevelMismatch   = core.NewFieldError("subject_id", "subject level does not match the class level")
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, g Grade) (Grade, error)
		QueryGrades(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Grade, error)
		GetGrade(ctx context.Context, schoolID, id string) (Grade, error)
		UpdateGrade(ctx context.Context, g Grade) (Grade, error)
		DeleteGrade(ctx context.Context, schoolID, id string) error
	}

	// StudentFinder is satisfied by *student.Service.
	StudentFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (student.Student, error)
	}

	// ClassFinder is satisfied by *class.Service.
	ClassFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (class.Class, error)
	}

	// SubjectFinder is satisfied by *subject.Service.
	SubjectFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (subject.Subject, error)
	}

	// TeacherFinder is satisfied by *teacher.Service.
	TeacherFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (teacher.Teacher, error)
	}

	Service struct {
		repo     Repository
		students StudentFinder
		classes  ClassFinder
		subjects SubjectFinder
		teachers TeacherFinder
	}
)

func NewService(repo Repository, students StudentFinder, classes ClassFinder, subjects SubjectFinder, teachers TeacherFinder) *Service {
	return &Service{
		repo:     repo,
		students: students,
		classes:  classes,
		subjects: subjects,
		teachers: teachers,
	}
}

// trapNotFound turns a missing reference into a validation error on the referencing field.
func trapNotFound(err, fieldErr error, msg string) error {
	if core.IsNotFound(err) {
		return fieldErr
	}
	return errors.Wrap(err, msg)
}

func (svc *Service) checkTeacher(ctx context.Context, schoolID, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	if _, err := svc.teachers.GetByID(ctx, schoolID, teacherID); err != nil {
		return trapNotFound(err, errTeacherNotFound, "finding teacher")
	}
	return nil
}

// checkMark validates the score or appreciation of g against the grading scale of its class level.
func checkMark(g *Grade, scale core.GradingScale) error {
	if scale.Qualitative {
		if g.Score != nil {
			return core.NewFieldError("score", "numeric scores are not used for "+scale.Level+", use an appreciation")
		}
		if g.Appreciation == "" {
			return core.NewFieldError("appreciation", "this field is required")
		}
		if err := scale.CheckAppreciation(g.Appreciation); err != nil {
			return core.NewFieldError("appreciation", err.Error())
		}
		g.MaxScore = 0
		return nil
	}

	if g.Appreciation != "" {
		return core.NewFieldError("appreciation", "appreciations are only used for "+core.LevelMaternelle)
	}
	if g.Score == nil {
		return core.NewFieldError("score", "this field is required")
	}
	if err := scale.CheckScore(*g.Score); err != nil {
		return core.NewFieldError("score", err.Error())
	}
	g.MaxScore = scale.Max
	return nil
}

func (svc *Service) Create(ctx context.Context, schoolID string, ng NewGrade) (Grade, error) {
	stud, err := svc.students.GetByID(ctx, schoolID, ng.StudentID)
	if err != nil {
		return Grade{}, trapNotFound(err, errStudentNotFound, "finding student")
	}

	classID := ng.ClassID
	if classID == "" {
		classID = stud.ClassID
	}
	if classID == "" {
		return Grade{}, errNotEnrolled
	}
	cls, err := svc.classes.GetByID(ctx, schoolID, classID)
	if err != nil {
		return Grade{}, trapNotFound(err, errClassNotFound, "finding class")
	}

	subj, err := svc.subjects.GetByID(ctx, schoolID, ng.SubjectID)
	if err != nil {
		return Grade{}, trapNotFound(err, errSubjectNotFound, "finding subject")
	}
	if subj.Level != cls.Level {
		return Grade{}, errLevelMismatch
	}

	if err = svc.checkTeacher(ctx, schoolID, ng.TeacherID); err != nil {
		return Grade{}, err
	}

	now := core.Now()
	g := Grade{
		ID:           uuid.New().String(),
		SchoolID:     schoolID,
		StudentID:    stud.ID,
		SubjectID:    subj.ID,
		ClassID:      cls.ID,
		TeacherID:    ng.TeacherID,
		Term:         ng.Term,
		Kind:         ng.Kind,
		Score:        ng.Score,
		Appreciation: ng.Appreciation,
		Comment:      ng.Comment,
		RecordedAt:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = checkMark(&g, cls.Scale()); err != nil {
		return Grade{}, err
	}
	return svc.repo.CreateGrade(ctx, g)
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Grade, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryGrades(ctx, schoolID, filter, OrderingFields.Clean(ordering))
}

func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Grade, error) {
	return svc.repo.GetGrade(ctx, schoolID, id)
}

func (svc *Service) Update(ctx context.Context, schoolID, id string, ug UpdateGrade) (Grade, error) {
	g, err := svc.repo.GetGrade(ctx, schoolID, id)
	if err != nil {
		return Grade{}, errors.Wrap(err, "finding grade")
	}
	if ug.TeacherID != nil {
		if err = svc.checkTeacher(ctx, schoolID, *ug.TeacherID); err != nil {
			return Grade{}, err
		}
	}

	cls, err := svc.classes.GetByID(ctx, schoolID, g.ClassID)
	if err != nil {
		return Grade{}, errors.Wrap(err, "finding class")
	}
	ug.apply(&g)
	if err = checkMark(&g, cls.Scale()); err != nil {
		return Grade{}, err
	}

	g.UpdatedAt = core.Now()
	return svc.repo.UpdateGrade(ctx, g)
}

func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	return svc.repo.DeleteGrade(ctx, schoolID, id)
}
