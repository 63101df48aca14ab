package class

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/teacher"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("class not found")
	ErrNameExists  = core.NewConflictError("a class with this name already exists for this academic year", "name")
	ErrHasStudents = core.NewConflictError("class has students and cannot be deleted")
)

type (
	Repository interface {
		// CreateClass fails with ErrNameExists when the name is taken for the academic year.
		CreateClass(ctx context.Context, c Class) (Class, error)
		QueryClasses(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error)
		GetClass(ctx context.Context, schoolID, id string) (Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		DeleteClass(ctx context.Context, schoolID, id string) error
		// CountStudents returns the number of students enrolled in the Class, whatever their status.
		CountStudents(ctx context.Context, schoolID, id string) (int, error)
	}

	// TeacherFinder is satisfied by *teacher.Service.
	TeacherFinder interface {
		GetByID(ctx context.Context, schoolID, id string) (teacher.Teacher, error)
	}

	Service struct {
		repo     Repository
		teachers TeacherFinder
	}
)

func NewService(repo Repository, teachers TeacherFinder) *Service {
	return &Service{repo: repo, teachers: teachers}
}

func (svc *Service) checkTeacher(ctx context.Context, schoolID, teacherID string) error {
	if teacherID == "" {
		return nil
	}
	if _, err := svc.teachers.GetByID(ctx, schoolID, teacherID); err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("homeroom_teacher_id", "teacher not found")
		}
		return errors.Wrap(err, "finding homeroom teacher")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, schoolID string, nc NewClass) (Class, error) {
	if err := svc.checkTeacher(ctx, schoolID, nc.HomeroomTeacherID); err != nil {
		return Class{}, err
	}

	now := core.Now()
	c := Class{
		ID:                uuid.New().String(),
		SchoolID:          schoolID,
		Name:              nc.Name,
		Level:             nc.Level,
		Section:           nc.Section,
		AcademicYear:      nc.AcademicYear,
		Capacity:          nc.Capacity,
		HomeroomTeacherID: nc.HomeroomTeacherID,
		Status:            StatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.repo.CreateClass(ctx, c)
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter *QueryFilter, ordering []core.DBOrdering) ([]Class, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryClasses(ctx, schoolID, filter, OrderingFields.Clean(ordering))
}

func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (Class, error) {
	return svc.repo.GetClass(ctx, schoolID, id)
}

func (svc *Service) CountStudents(ctx context.Context, schoolID, id string) (int, error) {
	return svc.repo.CountStudents(ctx, schoolID, id)
}

// Update applies uc on the Class id. The capacity must fit the level and the pupils already enrolled.
func (svc *Service) Update(ctx context.Context, schoolID, id string, uc UpdateClass) (Class, error) {
	c, err := svc.repo.GetClass(ctx, schoolID, id)
	if err != nil {
		return Class{}, errors.Wrap(err, "finding class")
	}
	if uc.HomeroomTeacherID != nil {
		if err = svc.checkTeacher(ctx, schoolID, *uc.HomeroomTeacherID); err != nil {
			return Class{}, err
		}
	}

	levelChanged := uc.Level != nil && *uc.Level != c.Level
	uc.apply(&c)
	if levelChanged && uc.Capacity == nil && c.Capacity > core.MaxCapacity(c.Level) {
		c.Capacity = core.MaxCapacity(c.Level)
	}
	if err = checkCapacity(c.Level, c.Capacity); err != nil {
		return Class{}, err
	}

	enrolled, err := svc.repo.CountStudents(ctx, schoolID, id)
	if err != nil {
		return Class{}, errors.Wrap(err, "counting students")
	}
	if c.Capacity < enrolled {
		return Class{}, core.NewFieldError("capacity", fmt.Sprintf("capacity cannot be lower than the %d enrolled students", enrolled))
	}

	c.UpdatedAt = core.Now()
	return svc.repo.UpdateClass(ctx, c)
}

func (svc *Service) SetStatus(ctx context.Context, schoolID, id, status string) (Class, error) {
	c, err := svc.repo.GetClass(ctx, schoolID, id)
	if err != nil {
		return Class{}, errors.Wrap(err, "finding class")
	}
	c.Status = status
	c.UpdatedAt = core.Now()
	return svc.repo.UpdateClass(ctx, c)
}

// Delete removes an empty Class.
func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := svc.repo.GetClass(ctx, schoolID, id); err != nil {
		return errors.Wrap(err, "finding class")
	}
	enrolled, err := svc.repo.CountStudents(ctx, schoolID, id)
	if err != nil {
		return errors.Wrap(err, "counting students")
	}
	if enrolled > 0 {
		return ErrHasStudents
	}
	return svc.repo.DeleteClass(ctx, schoolID, id)
}
