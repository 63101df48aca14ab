package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/planning"
)

var (
	roomColumns     = []string{"id", "school_id", "name", "capacity", "kind", "status", "created_at", "updated_at"}
	scheduleColumns = []string{
		"id", "school_id", "class_id", "subject_id", "teacher_id", "room_id", "day_of_week", "start_time", "end_time",
		"academic_year", "created_at", "updated_at",
	}
)

type scheduleRow struct {
	ID           string      `db:"id"`
	SchoolID     string      `db:"school_id"`
	ClassID      string      `db:"class_id"`
	SubjectID    string      `db:"subject_id"`
	TeacherID    string      `db:"teacher_id"`
	RoomID       null.String `db:"room_id"`
	DayOfWeek    int         `db:"day_of_week"`
	StartTime    string      `db:"start_time"`
	EndTime      string      `db:"end_time"`
	AcademicYear string      `db:"academic_year"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

type planningRepository struct {
	db core.DB
}

var _ planning.Repository = (*planningRepository)(nil) // interface compliance check

func NewPlanningRepository(db core.DB) planning.Repository {
	return &planningRepository{db: db}
}

func (repo planningRepository) boilEntry(e planning.ScheduleEntry) scheduleRow {
	return scheduleRow{
		ID:           e.ID,
		SchoolID:     e.SchoolID,
		ClassID:      e.ClassID,
		SubjectID:    e.SubjectID,
		TeacherID:    e.TeacherID,
		RoomID:       null.NewString(e.RoomID, e.RoomID != ""),
		DayOfWeek:    e.DayOfWeek,
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		AcademicYear: e.AcademicYear,
		CreatedAt:    e.CreatedAt.UTC(),
		UpdatedAt:    e.UpdatedAt.UTC(),
	}
}

func (repo planningRepository) unboilEntry(row scheduleRow) planning.ScheduleEntry {
	return planning.ScheduleEntry{
		ID:           row.ID,
		SchoolID:     row.SchoolID,
		ClassID:      row.ClassID,
		SubjectID:    row.SubjectID,
		TeacherID:    row.TeacherID,
		RoomID:       row.RoomID.String,
		DayOfWeek:    row.DayOfWeek,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		AcademicYear: row.AcademicYear,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo *planningRepository) CreateRoom(ctx context.Context, r planning.Room) (planning.Room, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("rooms", roomColumns), r); err != nil {
		return planning.Room{}, trapPgErr(err, "inserting room")
	}
	return r, nil
}

func (repo *planningRepository) QueryRooms(ctx context.Context, schoolID string, filter *planning.RoomFilter, ordering []core.DBOrdering) ([]planning.Room, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.Search != "" {
			where.search(filter.Search, "name")
		}
		if filter.Kind != "" {
			where.add("kind = ?", filter.Kind)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.MinCapacity > 0 {
			where.add("capacity >= ?", filter.MinCapacity)
		}
	}

	rooms := make([]planning.Room, 0)
	q := selectQuery("rooms", roomColumns) + where.String() + core.OrderByClause(ordering, "name ASC")
	if err := selectAll(ctx, repo.db, &rooms, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying rooms")
	}
	return rooms, nil
}

func (repo *planningRepository) GetRoom(ctx context.Context, schoolID, id string) (planning.Room, error) {
	if !validID(id) {
		return planning.Room{}, planning.ErrRoomNotFound
	}
	var r planning.Room
	q := selectQuery("rooms", roomColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &r, q, schoolID, id); err != nil {
		return planning.Room{}, trapNoRowsErr(err, planning.ErrRoomNotFound, "finding room")
	}
	return r, nil
}

func (repo *planningRepository) UpdateRoom(ctx context.Context, r planning.Room) (planning.Room, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("rooms", roomColumns, "id", "school_id"), r)
	if err != nil {
		return planning.Room{}, trapPgErr(err, "updating room")
	}
	if !found {
		return planning.Room{}, planning.ErrRoomNotFound
	}
	return r, nil
}

// DeleteRoom relies on ON DELETE SET NULL to free the schedule entries.
func (repo *planningRepository) DeleteRoom(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return planning.ErrRoomNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM rooms WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting room")
	}
	if n == 0 {
		return planning.ErrRoomNotFound
	}
	return nil
}

func (repo *planningRepository) CreateScheduleEntry(ctx context.Context, e planning.ScheduleEntry) (planning.ScheduleEntry, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("schedule_entries", scheduleColumns), repo.boilEntry(e)); err != nil {
		return planning.ScheduleEntry{}, trapPgErr(err, "inserting schedule entry")
	}
	return e, nil
}

func (repo *planningRepository) QueryScheduleEntries(ctx context.Context, schoolID string, filter *planning.ScheduleFilter) ([]planning.ScheduleEntry, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.ClassID != "" {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.TeacherID != "" {
			where.add("teacher_id = ?", filter.TeacherID)
		}
		if filter.RoomID != "" {
			where.add("room_id = ?", filter.RoomID)
		}
		if filter.DayOfWeek != 0 {
			where.add("day_of_week = ?", filter.DayOfWeek)
		}
		if filter.AcademicYear != "" {
			where.add("academic_year = ?", filter.AcademicYear)
		}
	}

	var rows []scheduleRow
	q := selectQuery("schedule_entries", scheduleColumns) + where.String() + " ORDER BY day_of_week, start_time, created_at"
	if err := selectAll(ctx, repo.db, &rows, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying schedule entries")
	}
	entries := make([]planning.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, repo.unboilEntry(row))
	}
	return entries, nil
}

func (repo *planningRepository) GetScheduleEntry(ctx context.Context, schoolID, id string) (planning.ScheduleEntry, error) {
	if !validID(id) {
		return planning.ScheduleEntry{}, planning.ErrEntryNotFound
	}
	var row scheduleRow
	q := selectQuery("schedule_entries", scheduleColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &row, q, schoolID, id); err != nil {
		return planning.ScheduleEntry{}, trapNoRowsErr(err, planning.ErrEntryNotFound, "finding schedule entry")
	}
	return repo.unboilEntry(row), nil
}

func (repo *planningRepository) UpdateScheduleEntry(ctx context.Context, e planning.ScheduleEntry) (planning.ScheduleEntry, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("schedule_entries", scheduleColumns, "id", "school_id"), repo.boilEntry(e))
	if err != nil {
		return planning.ScheduleEntry{}, trapPgErr(err, "updating schedule entry")
	}
	if !found {
		return planning.ScheduleEntry{}, planning.ErrEntryNotFound
	}
	return e, nil
}

func (repo *planningRepository) DeleteScheduleEntry(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return planning.ErrEntryNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM schedule_entries WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting schedule entry")
	}
	if n == 0 {
		return planning.ErrEntryNotFound
	}
	return nil
}
