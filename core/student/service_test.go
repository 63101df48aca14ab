package student_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/core/teacher"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	testutil "github.com/trezcool/academia/tests"
)

type fixture struct {
	schoolID string
	classes  *class.Service
	students *student.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })

	sch := testutil.CreateSchool(t, inmemdb.NewSchoolRepository(db), "Lycée Wagenia", "wagenia", "")
	classes := class.NewService(inmemdb.NewClassRepository(db), teacher.NewService(inmemdb.NewTeacherRepository(db)))
	return fixture{
		schoolID: sch.ID,
		classes:  classes,
		students: student.NewService(inmemdb.NewStudentRepository(db), classes),
	}
}

func (f fixture) class(t *testing.T, name, level string, capacity int) class.Class {
	t.Helper()
	if capacity == 0 {
		capacity = core.MaxCapacity(level)
	}
	c, err := f.classes.Create(context.Background(), f.schoolID, class.NewClass{
		Name: name, Level: level, AcademicYear: "2025-2026", Capacity: capacity,
	})
	require.NoError(t, err)
	return c
}

func yearsAgo(years int) core.Date {
	return core.DateOf(core.Now().AddDate(-years, -1, 0))
}

func newStudent(matricule string, age int, classID string) student.NewStudent {
	return student.NewStudent{
		StudentID: matricule, FirstName: "Amani", LastName: matricule, Gender: "M",
		DateOfBirth: yearsAgo(age), ClassID: classID,
	}
}

func TestService_Create(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	small := f.class(t, "6e A", core.LevelPrimaire, 1)
	archived := f.class(t, "6e B", core.LevelPrimaire, 10)
	_, err := f.classes.SetStatus(ctx, f.schoolID, archived.ID, class.StatusArchived)
	require.NoError(t, err)

	stud, err := f.students.Create(ctx, f.schoolID, newStudent("ELV-001", 9, small.ID))
	require.NoError(t, err)
	assert.Equal(t, student.StatusActive, stud.Status)
	assert.Equal(t, core.Today(), stud.EnrollmentDate)

	tests := []struct {
		name    string
		ns      student.NewStudent
		wantErr error
		check   func(error) bool
	}{
		{name: "class full", ns: newStudent("ELV-002", 9, small.ID), wantErr: student.ErrClassFull},
		{name: "class archived", ns: newStudent("ELV-003", 9, archived.ID), wantErr: student.ErrClassArchived},
		{name: "unknown class", ns: newStudent("ELV-004", 9, "5e5a4c3e-0000-4000-8000-000000000000"), wantErr: student.ErrClassNotFound},
		{name: "duplicate student id", ns: newStudent("ELV-001", 9, ""), check: core.IsConflict},
		{name: "no class", ns: newStudent("ELV-006", 16, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.students.Create(ctx, f.schoolID, tt.ns)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.check != nil:
				assert.True(t, tt.check(err), "got %v", err)
			default:
				assert.NoError(t, err)
			}
		})
	}

	t.Run("age checked against the level", func(t *testing.T) {
		roomy := f.class(t, "1re Sec", core.LevelSecondaire, 0)
		_, err := f.students.Create(ctx, f.schoolID, newStudent("ELV-007", 7, roomy.ID))
		verr, ok := err.(*core.ValidationError)
		require.True(t, ok, "got %v", err)
		assert.Equal(t, "date_of_birth", verr.Fields[0].Field)
	})
}

func TestService_classMembership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cls := f.class(t, "3e A", core.LevelPrimaire, 0)
	other := f.class(t, "3e B", core.LevelPrimaire, 0)

	stud, err := f.students.Create(ctx, f.schoolID, newStudent("ELV-010", 8, cls.ID))
	require.NoError(t, err)

	n, err := f.classes.CountStudents(ctx, f.schoolID, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, class.ErrHasStudents, f.classes.Delete(ctx, f.schoolID, cls.ID))

	// moving to another class re-checks the enrollment
	otherID := other.ID
	stud, err = f.students.Update(ctx, f.schoolID, stud.ID, student.UpdateStudent{ClassID: &otherID})
	require.NoError(t, err)
	assert.Equal(t, other.ID, stud.ClassID)
	require.NoError(t, f.classes.Delete(ctx, f.schoolID, cls.ID))

	// a birth date out of the level range is refused
	dob := yearsAgo(17)
	_, err = f.students.Update(ctx, f.schoolID, stud.ID, student.UpdateStudent{DateOfBirth: &dob})
	assert.True(t, core.IsValidation(err), "got %v", err)

	// graduates leave their class
	stud, err = f.students.SetStatus(ctx, f.schoolID, stud.ID, student.StatusGraduated)
	require.NoError(t, err)
	assert.Empty(t, stud.ClassID)
	require.NoError(t, f.classes.Delete(ctx, f.schoolID, other.ID))

	// tenants are isolated
	_, err = f.students.GetByID(ctx, "another-school", stud.ID)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestService_concurrentEnrollment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cls := f.class(t, "5e A", core.LevelPrimaire, 3)

	const candidates = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enrolled int
		refused  int
	)
	for i := 0; i < candidates; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.students.Create(ctx, f.schoolID, newStudent(fmt.Sprintf("ELV-%03d", i), 9, cls.ID))
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				enrolled++
			case student.ErrClassFull:
				refused++
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 3, enrolled)
	assert.Equal(t, candidates-3, refused)

	n, err := f.classes.CountStudents(ctx, f.schoolID, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// moving into a full class is refused too
	roomy := f.class(t, "5e B", core.LevelPrimaire, 0)
	stud, err := f.students.Create(ctx, f.schoolID, newStudent("ELV-100", 9, roomy.ID))
	require.NoError(t, err)
	_, err = f.students.Update(ctx, f.schoolID, stud.ID, student.UpdateStudent{ClassID: &cls.ID})
	assert.Equal(t, student.ErrClassFull, err)
	got, err := f.students.GetByID(ctx, f.schoolID, stud.ID)
	require.NoError(t, err)
	assert.Equal(t, roomy.ID, got.ClassID)
}
