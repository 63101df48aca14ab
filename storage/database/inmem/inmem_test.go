package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/billing"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/grade"
	"github.com/trezcool/academia/core/planning"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/subject"
	"github.com/trezcool/academia/core/teacher"
	"github.com/trezcool/academia/core/user"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

const schoolID = "school-1"

func newID() string { return uuid.New().String() }

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	now := core.Now()

	mk := func(schoolID, name, uname, email string, created time.Time) user.User {
		usr, err := repo.CreateUser(ctx, user.User{
			ID: newID(), SchoolID: schoolID, Name: name, Username: uname, Email: email, Role: user.RoleTeacher,
			IsActive: true, CreatedAt: created, UpdatedAt: created,
		})
		require.NoError(t, err)
		return usr
	}
	bob := mk(schoolID, "Bob", "bob", "bob@x.cd", now)
	mk(schoolID, "Alice", "alice", "", now.Add(time.Hour))
	mk("school-2", "Carl", "carl", "carl@x.cd", now)

	_, err := repo.CreateUser(ctx, user.User{ID: newID(), Username: "bob"})
	assert.Equal(t, user.ErrUsernameExists, err)
	_, err = repo.CreateUser(ctx, user.User{ID: newID(), Username: "bobby", Email: "bob@x.cd"})
	assert.Equal(t, user.ErrEmailExists, err)
	_, err = repo.CreateUser(ctx, user.User{ID: newID(), Username: "dan"})
	assert.NoError(t, err, "empty emails never collide")

	users, err := repo.QueryUsers(ctx, &user.QueryFilter{SchoolID: schoolID}, nil)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)

	users, err = repo.QueryUsers(ctx, &user.QueryFilter{SchoolID: schoolID}, []core.DBOrdering{{Field: "created_at"}})
	require.NoError(t, err)
	assert.Equal(t, "Alice", users[0].Name)

	got, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "bob@x.cd", SchoolID: schoolID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)
	_, err = repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: "bob", SchoolID: "school-2"})
	assert.Equal(t, user.ErrNotFound, err)

	require.NoError(t, repo.DeleteUsersByID(ctx, "school-2", bob.ID))
	_, err = repo.GetUser(ctx, user.GetFilter{ID: bob.ID})
	assert.NoError(t, err, "other tenants are untouched")
	require.NoError(t, repo.DeleteUsersByID(ctx, schoolID, bob.ID))
	_, err = repo.GetUser(ctx, user.GetFilter{ID: bob.ID})
	assert.Equal(t, user.ErrNotFound, err)
}

// fixture creates a small school: one class with one student, a teacher, a subject and a room.
type fixture struct {
	db      *inmemdb.DB
	teacher teacher.Teacher
	subject subject.Subject
	class   class.Class
	student student.Student
	room    planning.Room
	grade   grade.Grade
	invoice billing.Invoice
	entry   planning.ScheduleEntry
}

func newFixture(t *testing.T) fixture {
	ctx := context.Background()
	db := inmemdb.Open()
	f := fixture{db: db}
	var err error

	_, err = inmemdb.NewSchoolRepository(db).CreateSchool(ctx, school.School{ID: schoolID, Name: "Wima", Subdomain: "wima"})
	require.NoError(t, err)
	f.teacher, err = inmemdb.NewTeacherRepository(db).CreateTeacher(ctx, teacher.Teacher{ID: newID(), SchoolID: schoolID, EmployeeID: "T1", Email: "t@x.cd"})
	require.NoError(t, err)
	f.subject, err = inmemdb.NewSubjectRepository(db).CreateSubject(ctx, subject.Subject{ID: newID(), SchoolID: schoolID, Code: "MATH"})
	require.NoError(t, err)
	f.class, err = inmemdb.NewClassRepository(db).CreateClass(ctx, class.Class{
		ID: newID(), SchoolID: schoolID, Name: "6A", AcademicYear: "2025-2026", HomeroomTeacherID: f.teacher.ID,
	})
	require.NoError(t, err)
	f.student, err = inmemdb.NewStudentRepository(db).CreateStudent(ctx, student.Student{ID: newID(), SchoolID: schoolID, StudentID: "S1", ClassID: f.class.ID})
	require.NoError(t, err)
	f.room, err = inmemdb.NewPlanningRepository(db).CreateRoom(ctx, planning.Room{ID: newID(), SchoolID: schoolID, Name: "B12"})
	require.NoError(t, err)
	f.grade, err = inmemdb.NewGradeRepository(db).CreateGrade(ctx, grade.Grade{
		ID: newID(), SchoolID: schoolID, StudentID: f.student.ID, SubjectID: f.subject.ID, ClassID: f.class.ID, TeacherID: f.teacher.ID,
	})
	require.NoError(t, err)
	f.invoice, err = inmemdb.NewBillingRepository(db).CreateInvoice(ctx, billing.Invoice{
		ID: newID(), SchoolID: schoolID, Number: "INV-1", StudentID: f.student.ID, Amount: 1000, Status: billing.StatusPending,
	})
	require.NoError(t, err)
	f.entry, err = inmemdb.NewPlanningRepository(db).CreateScheduleEntry(ctx, planning.ScheduleEntry{
		ID: newID(), SchoolID: schoolID, ClassID: f.class.ID, SubjectID: f.subject.ID, TeacherID: f.teacher.ID, RoomID: f.room.ID,
		DayOfWeek: 1, StartTime: "08:00", EndTime: "09:00",
	})
	require.NoError(t, err)
	return f
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := inmemdb.NewTeacherRepository(f.db).CreateTeacher(ctx, teacher.Teacher{ID: newID(), SchoolID: schoolID, EmployeeID: "T1"})
	assert.Equal(t, teacher.ErrEmployeeIDExists, err)
	_, err = inmemdb.NewTeacherRepository(f.db).CreateTeacher(ctx, teacher.Teacher{ID: newID(), SchoolID: "school-2", EmployeeID: "T1", Email: "t@x.cd"})
	assert.NoError(t, err, "unique per school")

	_, err = inmemdb.NewClassRepository(f.db).CreateClass(ctx, class.Class{ID: newID(), SchoolID: schoolID, Name: "6A", AcademicYear: "2025-2026"})
	assert.Equal(t, class.ErrNameExists, err)
	_, err = inmemdb.NewClassRepository(f.db).CreateClass(ctx, class.Class{ID: newID(), SchoolID: schoolID, Name: "6A", AcademicYear: "2026-2027"})
	assert.NoError(t, err)

	_, err = inmemdb.NewSubjectRepository(f.db).CreateSubject(ctx, subject.Subject{ID: newID(), SchoolID: schoolID, Code: "MATH"})
	assert.Equal(t, subject.ErrCodeExists, err)
	_, err = inmemdb.NewStudentRepository(f.db).CreateStudent(ctx, student.Student{ID: newID(), SchoolID: schoolID, StudentID: "S1"})
	assert.Equal(t, student.ErrStudentIDExists, err)
	_, err = inmemdb.NewBillingRepository(f.db).CreateInvoice(ctx, billing.Invoice{ID: newID(), SchoolID: schoolID, Number: "INV-1"})
	assert.Equal(t, billing.ErrNumberExists, err)
	_, err = inmemdb.NewPlanningRepository(f.db).CreateRoom(ctx, planning.Room{ID: newID(), SchoolID: schoolID, Name: "B12"})
	assert.Equal(t, planning.ErrRoomExists, err)

	// renaming onto itself is fine
	f.room.Capacity = 30
	_, err = inmemdb.NewPlanningRepository(f.db).UpdateRoom(ctx, f.room)
	assert.NoError(t, err)
}

func TestCascades(t *testing.T) {
	ctx := context.Background()

	t.Run("class with students", func(t *testing.T) {
		f := newFixture(t)
		classes := inmemdb.NewClassRepository(f.db)

		n, err := classes.CountStudents(ctx, schoolID, f.class.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, class.ErrHasStudents, classes.DeleteClass(ctx, schoolID, f.class.ID))
	})

	t.Run("subject with grades", func(t *testing.T) {
		f := newFixture(t)
		subjects := inmemdb.NewSubjectRepository(f.db)

		assert.Equal(t, subject.ErrHasGrades, subjects.DeleteSubject(ctx, schoolID, f.subject.ID))
		require.NoError(t, inmemdb.NewGradeRepository(f.db).DeleteGrade(ctx, schoolID, f.grade.ID))
		require.NoError(t, subjects.DeleteSubject(ctx, schoolID, f.subject.ID))
		_, err := inmemdb.NewPlanningRepository(f.db).GetScheduleEntry(ctx, schoolID, f.entry.ID)
		assert.Equal(t, planning.ErrEntryNotFound, err)
	})

	t.Run("teacher", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, inmemdb.NewTeacherRepository(f.db).DeleteTeacher(ctx, schoolID, f.teacher.ID))

		cls, err := inmemdb.NewClassRepository(f.db).GetClass(ctx, schoolID, f.class.ID)
		require.NoError(t, err)
		assert.Empty(t, cls.HomeroomTeacherID)
		g, err := inmemdb.NewGradeRepository(f.db).GetGrade(ctx, schoolID, f.grade.ID)
		require.NoError(t, err)
		assert.Empty(t, g.TeacherID)
		_, err = inmemdb.NewPlanningRepository(f.db).GetScheduleEntry(ctx, schoolID, f.entry.ID)
		assert.Equal(t, planning.ErrEntryNotFound, err)
	})

	t.Run("room", func(t *testing.T) {
		f := newFixture(t)
		plan := inmemdb.NewPlanningRepository(f.db)
		require.NoError(t, plan.DeleteRoom(ctx, schoolID, f.room.ID))

		e, err := plan.GetScheduleEntry(ctx, schoolID, f.entry.ID)
		require.NoError(t, err)
		assert.Empty(t, e.RoomID)
	})

	t.Run("student", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, inmemdb.NewStudentRepository(f.db).DeleteStudent(ctx, schoolID, f.student.ID))

		_, err := inmemdb.NewGradeRepository(f.db).GetGrade(ctx, schoolID, f.grade.ID)
		assert.Equal(t, grade.ErrNotFound, err)
		_, err = inmemdb.NewBillingRepository(f.db).GetInvoice(ctx, schoolID, f.invoice.ID)
		assert.Equal(t, billing.ErrInvoiceNotFound, err)
		require.NoError(t, inmemdb.NewClassRepository(f.db).DeleteClass(ctx, schoolID, f.class.ID))
	})

	t.Run("school", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, inmemdb.NewSchoolRepository(f.db).DeleteSchool(ctx, schoolID))

		students, err := inmemdb.NewStudentRepository(f.db).QueryStudents(ctx, schoolID, nil, nil)
		require.NoError(t, err)
		assert.Empty(t, students)
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo := inmemdb.NewBillingRepository(f.db)

	pay := func(ref string, amount int64) billing.PayFunc {
		return func(inv *billing.Invoice) (billing.Payment, error) {
			inv.AmountPaid += amount
			return billing.Payment{ID: newID(), SchoolID: schoolID, InvoiceID: inv.ID, StudentID: inv.StudentID, Amount: amount, Reference: ref}, nil
		}
	}

	_, inv, err := repo.RecordPayment(ctx, schoolID, f.invoice.ID, pay("R1", 300))
	require.NoError(t, err)
	assert.Equal(t, int64(300), inv.AmountPaid)

	_, _, err = repo.RecordPayment(ctx, schoolID, f.invoice.ID, pay("R1", 200))
	assert.Equal(t, billing.ErrReferenceExists, err)
	saved, err := repo.GetInvoice(ctx, schoolID, f.invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(300), saved.AmountPaid, "nothing saved on failure")

	_, _, err = repo.RecordPayment(ctx, "school-2", f.invoice.ID, pay("R2", 200))
	assert.Equal(t, billing.ErrInvoiceNotFound, err)

	assert.Equal(t, billing.ErrHasPayments, repo.DeleteInvoice(ctx, schoolID, f.invoice.ID))

	payments, err := repo.QueryPayments(ctx, schoolID, &billing.PaymentFilter{InvoiceID: f.invoice.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestQueryScheduleEntries_Sorted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo := inmemdb.NewPlanningRepository(f.db)

	for _, slot := range []struct {
		day   int
		start string
	}{{2, "08:00"}, {1, "10:00"}, {1, "07:00"}} {
		_, err := repo.CreateScheduleEntry(ctx, planning.ScheduleEntry{ID: newID(), SchoolID: schoolID, ClassID: f.class.ID, DayOfWeek: slot.day, StartTime: slot.start})
		require.NoError(t, err)
	}

	entries, err := repo.QueryScheduleEntries(ctx, schoolID, &planning.ScheduleFilter{ClassID: f.class.ID})
	require.NoError(t, err)
	var got []string
	for _, e := range entries {
		got = append(got, planning.Days[e.DayOfWeek]+" "+e.StartTime)
	}
	assert.Equal(t, []string{"MONDAY 07:00", "MONDAY 08:00", "MONDAY 10:00", "TUESDAY 08:00"}, got)
}
