package planning

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
)

var (
	// errors
	ErrRoomNotFound  = core.NewNotFoundError("room not found")
	ErrEntryNotFound = core.NewNotFoundError("schedule entry not found")
	ErrRoomExists    = core.NewConflictError("a room with this name already exists", "name")
)

type (
	Repository interface {
		// CreateRoom fails with ErrRoomExists when the name is taken in the School.
		CreateRoom(ctx context.Context, r Room) (Room, error)
		QueryRooms(ctx context.Context, schoolID string, filter *RoomFilter, ordering []core.DBOrdering) ([]Room, error)
		GetRoom(ctx context.Context, schoolID, id string) (Room, error)
		UpdateRoom(ctx context.Context, r Room) (Room, error)
		// DeleteRoom frees the schedule entries held in the Room.
		DeleteRoom(ctx context.Context, schoolID, id string) error

		CreateScheduleEntry(ctx context.Context, e ScheduleEntry) (ScheduleEntry, error)
		// QueryScheduleEntries returns entries sorted by day then start time.
		QueryScheduleEntries(ctx context.Context, schoolID string, filter *ScheduleFilter) ([]ScheduleEntry, error)
		GetScheduleEntry(ctx context.Context, schoolID, id string) (ScheduleEntry, error)
		UpdateScheduleEntry(ctx context.Context, e ScheduleEntry) (ScheduleEntry, error)
		DeleteScheduleEntry(ctx context.Context, schoolID, id string) error
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
		classes  ClassFinder
		subjects SubjectFinder
		teachers TeacherFinder
	}
)

func NewService(repo Repository, classes ClassFinder, subjects SubjectFinder, teachers TeacherFinder) *Service {
	return &Service{
		repo:     repo,
		classes:  classes,
		subjects: subjects,
		teachers: teachers,
	}
}

// Rooms

func (svc *Service) CreateRoom(ctx context.Context, schoolID string, nr NewRoom) (Room, error) {
	now := core.Now()
	r := Room{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Name:      nr.Name,
		Capacity:  nr.Capacity,
		Kind:      nr.Kind,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateRoom(ctx, r)
}

func (svc *Service) QueryRooms(ctx context.Context, schoolID string, filter *RoomFilter, ordering []core.DBOrdering) ([]Room, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryRooms(ctx, schoolID, filter, RoomOrderingFields.Clean(ordering))
}

func (svc *Service) GetRoom(ctx context.Context, schoolID, id string) (Room, error) {
	return svc.repo.GetRoom(ctx, schoolID, id)
}

func (svc *Service) UpdateRoom(ctx context.Context, schoolID, id string, ur UpdateRoom) (Room, error) {
	r, err := svc.repo.GetRoom(ctx, schoolID, id)
	if err != nil {
		return Room{}, errors.Wrap(err, "finding room")
	}
	ur.apply(&r)
	r.UpdatedAt = core.Now()
	return svc.repo.UpdateRoom(ctx, r)
}

func (svc *Service) SetRoomStatus(ctx context.Context, schoolID, id, status string) (Room, error) {
	r, err := svc.repo.GetRoom(ctx, schoolID, id)
	if err != nil {
		return Room{}, errors.Wrap(err, "finding room")
	}
	r.Status = status
	r.UpdatedAt = core.Now()
	return svc.repo.UpdateRoom(ctx, r)
}

func (svc *Service) DeleteRoom(ctx context.Context, schoolID, id string) error {
	return svc.repo.DeleteRoom(ctx, schoolID, id)
}

// Schedule

// checkRefs checks that every entity e points to exists in the School and fits together.
func (svc *Service) checkRefs(ctx context.Context, e ScheduleEntry, cls class.Class) error {
	subj, err := svc.subjects.GetByID(ctx, e.SchoolID, e.SubjectID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("subject_id", "subject not found")
		}
		return errors.Wrap(err, "finding subject")
	}
	if subj.Level != cls.Level {
		return core.NewFieldError("subject_id", "subject level does not match the class level")
	}

	if _, err = svc.teachers.GetByID(ctx, e.SchoolID, e.TeacherID); err != nil {
		if core.IsNotFound(err) {
			return core.NewFieldError("teacher_id", "teacher not found")
		}
		return errors.Wrap(err, "finding teacher")
	}

	if e.RoomID != "" {
		room, err := svc.repo.GetRoom(ctx, e.SchoolID, e.RoomID)
		if err != nil {
			if core.IsNotFound(err) {
				return core.NewFieldError("room_id", "room not found")
			}
			return errors.Wrap(err, "finding room")
		}
		if !room.IsActive() {
			return core.NewFieldError("room_id", "room is not available")
		}
	}
	return nil
}

// checkClashes rejects e when its class, teacher or room is already booked at that time.
func (svc *Service) checkClashes(ctx context.Context, e ScheduleEntry) error {
	sameDay, err := svc.repo.QueryScheduleEntries(ctx, e.SchoolID, &ScheduleFilter{DayOfWeek: e.DayOfWeek, AcademicYear: e.AcademicYear})
	if err != nil {
		return errors.Wrap(err, "querying schedule")
	}
	for _, other := range sameDay {
		if other.ID == e.ID || !e.Overlaps(other) {
			continue
		}
		switch {
		case other.ClassID == e.ClassID:
			return core.NewConflictError(fmt.Sprintf("the class already has a lesson on %s", other.Slot()), "class_id")
		case other.TeacherID == e.TeacherID:
			return core.NewConflictError(fmt.Sprintf("the teacher is already teaching on %s", other.Slot()), "teacher_id")
		case e.RoomID != "" && other.RoomID == e.RoomID:
			return core.NewConflictError(fmt.Sprintf("the room is already booked on %s", other.Slot()), "room_id")
		}
	}
	return nil
}

func (svc *Service) CreateScheduleEntry(ctx context.Context, schoolID string, ne NewScheduleEntry) (ScheduleEntry, error) {
	cls, err := svc.classes.GetByID(ctx, schoolID, ne.ClassID)
	if err != nil {
		if core.IsNotFound(err) {
			return ScheduleEntry{}, core.NewFieldError("class_id", "class not found")
		}
		return ScheduleEntry{}, errors.Wrap(err, "finding class")
	}

	now := core.Now()
	e := ScheduleEntry{
		ID:           uuid.New().String(),
		SchoolID:     schoolID,
		ClassID:      cls.ID,
		SubjectID:    ne.SubjectID,
		TeacherID:    ne.TeacherID,
		RoomID:       ne.RoomID,
		DayOfWeek:    ne.DayOfWeek,
		StartTime:    ne.StartTime,
		EndTime:      ne.EndTime,
		AcademicYear: ne.AcademicYear,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if e.AcademicYear == "" {
		e.AcademicYear = cls.AcademicYear
	}

	if err = checkTimes(e); err != nil {
		return ScheduleEntry{}, err
	}
	if err = svc.checkRefs(ctx, e, cls); err != nil {
		return ScheduleEntry{}, err
	}
	if err = svc.checkClashes(ctx, e); err != nil {
		return ScheduleEntry{}, err
	}
	return svc.repo.CreateScheduleEntry(ctx, e)
}

func (svc *Service) QuerySchedule(ctx context.Context, schoolID string, filter *ScheduleFilter) ([]ScheduleEntry, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryScheduleEntries(ctx, schoolID, filter)
}

func (svc *Service) GetScheduleEntry(ctx context.Context, schoolID, id string) (ScheduleEntry, error) {
	return svc.repo.GetScheduleEntry(ctx, schoolID, id)
}

func (svc *Service) UpdateScheduleEntry(ctx context.Context, schoolID, id string, ue UpdateScheduleEntry) (ScheduleEntry, error) {
	e, err := svc.repo.GetScheduleEntry(ctx, schoolID, id)
	if err != nil {
		return ScheduleEntry{}, errors.Wrap(err, "finding schedule entry")
	}
	cls, err := svc.classes.GetByID(ctx, schoolID, e.ClassID)
	if err != nil {
		return ScheduleEntry{}, errors.Wrap(err, "finding class")
	}

	ue.apply(&e)
	if err = checkTimes(e); err != nil {
		return ScheduleEntry{}, err
	}
	if err = svc.checkRefs(ctx, e, cls); err != nil {
		return ScheduleEntry{}, err
	}
	if err = svc.checkClashes(ctx, e); err != nil {
		return ScheduleEntry{}, err
	}

	e.UpdatedAt = core.Now()
	return svc.repo.UpdateScheduleEntry(ctx, e)
}

func (svc *Service) DeleteScheduleEntry(ctx context.Context, schoolID, id string) error {
	return svc.repo.DeleteScheduleEntry(ctx, schoolID, id)
}
