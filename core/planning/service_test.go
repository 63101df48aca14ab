package planning_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	testutil "github.com/trezcool/academia/tests"
)

type fixture struct {
	schoolID         string
	classA, classB   class.Class
	math, maternelle subject.Subject
	profA, profB     teacher.Teacher
	room             planning.Room
	svc              *planning.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })

	f := fixture{schoolID: testutil.CreateSchool(t, inmemdb.NewSchoolRepository(db), "Lycée Wagenia", "wagenia", "").ID}
	teachers := teacher.NewService(inmemdb.NewTeacherRepository(db))
	classes := class.NewService(inmemdb.NewClassRepository(db), teachers)
	subjects := subject.NewService(inmemdb.NewSubjectRepository(db))
	f.svc = planning.NewService(inmemdb.NewPlanningRepository(db), classes, subjects, teachers)

	var err error
	for i, dst := range []*teacher.Teacher{&f.profA, &f.profB} {
		*dst, err = teachers.Create(ctx, f.schoolID, teacher.NewTeacher{
			EmployeeID: []string{"ENS-001", "ENS-002"}[i], FirstName: "Prof", LastName: []string{"A", "B"}[i],
			Email: []string{"a@wagenia.cd", "b@wagenia.cd"}[i],
		})
		require.NoError(t, err)
	}
	for i, dst := range []*class.Class{&f.classA, &f.classB} {
		*dst, err = classes.Create(ctx, f.schoolID, class.NewClass{
			Name: []string{"1re A", "1re B"}[i], Level: core.LevelSecondaire, AcademicYear: "2025-2026", Capacity: 40,
		})
		require.NoError(t, err)
	}
	f.math, err = subjects.Create(ctx, f.schoolID, subject.NewSubject{Code: "MATH", Name: "Maths", Level: core.LevelSecondaire, Coefficient: 4})
	require.NoError(t, err)
	f.maternelle, err = subjects.Create(ctx, f.schoolID, subject.NewSubject{Code: "GRAPH", Name: "Graphisme", Level: core.LevelMaternelle, Coefficient: 1})
	require.NoError(t, err)
	f.room, err = f.svc.CreateRoom(ctx, f.schoolID, planning.NewRoom{Name: "Salle 1", Capacity: 40, Kind: planning.KindClassroom})
	require.NoError(t, err)
	return f
}

func (f fixture) entry(cls class.Class, prof teacher.Teacher, roomID string, day int, start, end string) planning.NewScheduleEntry {
	return planning.NewScheduleEntry{
		ClassID: cls.ID, SubjectID: f.math.ID, TeacherID: prof.ID, RoomID: roomID,
		DayOfWeek: day, StartTime: start, EndTime: end,
	}
}

func TestService_CreateScheduleEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.CreateScheduleEntry(ctx, f.schoolID, f.entry(f.classA, f.profA, f.room.ID, 1, "08:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, "2025-2026", first.AcademicYear)

	tests := []struct {
		name      string
		ne        planning.NewScheduleEntry
		conflict  bool
		wantField string
	}{
		{name: "class clash", ne: f.entry(f.classA, f.profB, "", 1, "09:00", "11:00"), conflict: true, wantField: "class_id"},
		{name: "teacher clash", ne: f.entry(f.classB, f.profA, "", 1, "09:30", "10:30"), conflict: true, wantField: "teacher_id"},
		{name: "room clash", ne: f.entry(f.classB, f.profB, f.room.ID, 1, "07:00", "08:30"), conflict: true, wantField: "room_id"},
		{name: "back to back", ne: f.entry(f.classB, f.profA, f.room.ID, 1, "10:00", "11:00")},
		{name: "another day", ne: f.entry(f.classA, f.profA, f.room.ID, 2, "08:00", "10:00")},
		{name: "ends before it starts", ne: f.entry(f.classB, f.profB, "", 3, "10:00", "09:00"), wantField: "end_time"},
		{name: "after hours", ne: f.entry(f.classB, f.profB, "", 3, "18:00", "19:30"), wantField: "start_time"},
		{name: "unknown room", ne: f.entry(f.classB, f.profB, "5e5a4c3e-0000-4000-8000-000000000000", 3, "08:00", "09:00"), wantField: "room_id"},
		{name: "unknown class", ne: f.entry(class.Class{ID: "5e5a4c3e-0000-4000-8000-000000000000"}, f.profB, "", 3, "08:00", "09:00"), wantField: "class_id"},
		{name: "subject of another level", ne: func() planning.NewScheduleEntry {
			ne := f.entry(f.classB, f.profB, "", 4, "08:00", "09:00")
			ne.SubjectID = f.maternelle.ID
			return ne
		}(), wantField: "subject_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateScheduleEntry(ctx, f.schoolID, tt.ne)
			switch {
			case tt.conflict:
				cerr, ok := err.(*core.ConflictError)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantField, cerr.Field)
			case tt.wantField != "":
				verr, ok := err.(*core.ValidationError)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
			default:
				assert.NoError(t, err)
			}
		})
	}

	monday, err := f.svc.QuerySchedule(ctx, f.schoolID, &planning.ScheduleFilter{DayOfWeek: 1})
	require.NoError(t, err)
	require.Len(t, monday, 2)
	assert.Equal(t, "08:00", monday[0].StartTime)
	assert.Equal(t, "10:00", monday[1].StartTime)
}

func TestService_UpdateScheduleEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.CreateScheduleEntry(ctx, f.schoolID, f.entry(f.classA, f.profA, f.room.ID, 1, "08:00", "09:00"))
	require.NoError(t, err)
	b, err := f.svc.CreateScheduleEntry(ctx, f.schoolID, f.entry(f.classB, f.profB, "", 1, "09:00", "10:00"))
	require.NoError(t, err)

	// moving an entry does not clash with itself
	end := "09:00"
	start := "07:30"
	a, err = f.svc.UpdateScheduleEntry(ctx, f.schoolID, a.ID, planning.UpdateScheduleEntry{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	assert.Equal(t, "07:30", a.StartTime)

	// taking the room of a booked slot
	roomID := f.room.ID
	start, end = "08:30", "09:30"
	_, err = f.svc.UpdateScheduleEntry(ctx, f.schoolID, b.ID, planning.UpdateScheduleEntry{RoomID: &roomID, StartTime: &start, EndTime: &end})
	assert.True(t, core.IsConflict(err), "got %v", err)

	// inactive rooms cannot be booked
	_, err = f.svc.SetRoomStatus(ctx, f.schoolID, f.room.ID, planning.StatusInactive)
	require.NoError(t, err)
	_, err = f.svc.UpdateScheduleEntry(ctx, f.schoolID, b.ID, planning.UpdateScheduleEntry{RoomID: &roomID})
	assert.True(t, core.IsValidation(err), "got %v", err)

	// deleting the room frees its entries
	require.NoError(t, f.svc.DeleteRoom(ctx, f.schoolID, f.room.ID))
	a, err = f.svc.GetScheduleEntry(ctx, f.schoolID, a.ID)
	require.NoError(t, err)
	assert.Empty(t, a.RoomID)
}

func TestService_rooms(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateRoom(ctx, f.schoolID, planning.NewRoom{Name: "Salle 1", Capacity: 10, Kind: planning.KindLab})
	assert.Equal(t, planning.ErrRoomExists, err)

	_, err = f.svc.CreateRoom(ctx, f.schoolID, planning.NewRoom{Name: "Gymnase", Capacity: 200, Kind: planning.KindGym})
	require.NoError(t, err)

	big, err := f.svc.QueryRooms(ctx, f.schoolID, &planning.RoomFilter{MinCapacity: 100}, nil)
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, "Gymnase", big[0].Name)
}
