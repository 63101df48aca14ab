package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/planning"
)

type planningRepository struct {
	db *DB
}

var _ planning.Repository = (*planningRepository)(nil) // interface compliance check

func NewPlanningRepository(db *DB) planning.Repository {
	return &planningRepository{db: db}
}

func roomColumn(r planning.Room, col string) interface{} {
	switch col {
	case "name":
		return r.Name
	case "capacity":
		return r.Capacity
	case "kind":
		return r.Kind
	case "status":
		return r.Status
	case "created_at":
		return r.CreatedAt
	}
	return nil
}

func scheduleColumn(e planning.ScheduleEntry, col string) interface{} {
	switch col {
	case "day_of_week":
		return e.DayOfWeek
	case "start_time":
		return e.StartTime
	case "created_at":
		return e.CreatedAt
	}
	return nil
}

func (repo *planningRepository) checkRoomUniqueness(r planning.Room) error {
	for _, other := range repo.db.rooms {
		if other.ID != r.ID && other.SchoolID == r.SchoolID && other.Name == r.Name {
			return planning.ErrRoomExists
		}
	}
	return nil
}

func (repo *planningRepository) CreateRoom(ctx context.Context, r planning.Room) (planning.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkRoomUniqueness(r); err != nil {
		return planning.Room{}, err
	}
	repo.db.rooms[r.ID] = r
	return r, nil
}

func (repo *planningRepository) QueryRooms(ctx context.Context, schoolID string, qf *planning.RoomFilter, ordering []core.DBOrdering) ([]planning.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rooms := filter(repo.db.rooms, func(r planning.Room) bool {
		if r.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		switch {
		case qf.Search != "" && !containsFold(r.Name, qf.Search),
			qf.Kind != "" && r.Kind != qf.Kind,
			qf.Status != "" && r.Status != qf.Status,
			qf.MinCapacity > 0 && r.Capacity < qf.MinCapacity:
			return false
		}
		return true
	})
	sortRecords(rooms, ordering, roomColumn, asc("name"))
	return rooms, nil
}

func (repo *planningRepository) GetRoom(ctx context.Context, schoolID, id string) (planning.Room, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.rooms[id]; ok && r.SchoolID == schoolID {
		return r, nil
	}
	return planning.Room{}, planning.ErrRoomNotFound
}

func (repo *planningRepository) UpdateRoom(ctx context.Context, r planning.Room) (planning.Room, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.rooms[r.ID]; !ok || orig.SchoolID != r.SchoolID {
		return planning.Room{}, planning.ErrRoomNotFound
	}
	if err := repo.checkRoomUniqueness(r); err != nil {
		return planning.Room{}, err
	}
	repo.db.rooms[r.ID] = r
	return r, nil
}

func (repo *planningRepository) DeleteRoom(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if r, ok := repo.db.rooms[id]; !ok || r.SchoolID != schoolID {
		return planning.ErrRoomNotFound
	}
	delete(repo.db.rooms, id)
	for eid, e := range repo.db.schedules {
		if e.RoomID == id {
			e.RoomID = ""
			repo.db.schedules[eid] = e
		}
	}
	return nil
}

func (repo *planningRepository) CreateScheduleEntry(ctx context.Context, e planning.ScheduleEntry) (planning.ScheduleEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.schedules[e.ID] = e
	return e, nil
}

func (repo *planningRepository) QueryScheduleEntries(ctx context.Context, schoolID string, qf *planning.ScheduleFilter) ([]planning.ScheduleEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	entries := filter(repo.db.schedules, func(e planning.ScheduleEntry) bool {
		if e.SchoolID != schoolID {
			return false
		}
		if qf == nil {
			return true
		}
		switch {
		case qf.ClassID != "" && e.ClassID != qf.ClassID,
			qf.TeacherID != "" && e.TeacherID != qf.TeacherID,
			qf.RoomID != "" && e.RoomID != qf.RoomID,
			qf.DayOfWeek != 0 && e.DayOfWeek != qf.DayOfWeek,
			qf.AcademicYear != "" && e.AcademicYear != qf.AcademicYear:
			return false
		}
		return true
	})
	sortRecords(entries, nil, scheduleColumn, asc("day_of_week"), asc("start_time"), asc("created_at"))
	return entries, nil
}

func (repo *planningRepository) GetScheduleEntry(ctx context.Context, schoolID, id string) (planning.ScheduleEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if e, ok := repo.db.schedules[id]; ok && e.SchoolID == schoolID {
		return e, nil
	}
	return planning.ScheduleEntry{}, planning.ErrEntryNotFound
}

func (repo *planningRepository) UpdateScheduleEntry(ctx context.Context, e planning.ScheduleEntry) (planning.ScheduleEntry, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.schedules[e.ID]; !ok || orig.SchoolID != e.SchoolID {
		return planning.ScheduleEntry{}, planning.ErrEntryNotFound
	}
	repo.db.schedules[e.ID] = e
	return e, nil
}

func (repo *planningRepository) DeleteScheduleEntry(ctx context.Context, schoolID, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if e, ok := repo.db.schedules[id]; !ok || e.SchoolID != schoolID {
		return planning.ErrEntryNotFound
	}
	delete(repo.db.schedules, id)
	return nil
}
