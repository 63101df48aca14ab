package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/student"
)

var studentColumns = []string{
	"id", "school_id", "student_id", "first_name", "last_name", "gender", "date_of_birth", "class_id",
	"parent_name", "parent_phone", "parent_email", "address", "status", "enrollment_date", "created_at", "updated_at",
}

type studentRow struct {
	ID             string      `db:"id"`
	SchoolID       string      `db:"school_id"`
	StudentID      string      `db:"student_id"`
	FirstName      string      `db:"first_name"`
	LastName       string      `db:"last_name"`
	Gender         string      `db:"gender"`
	DateOfBirth    core.Date   `db:"date_of_birth"`
	ClassID        null.String `db:"class_id"`
	ParentName     string      `db:"parent_name"`
	ParentPhone    string      `db:"parent_phone"`
	ParentEmail    string      `db:"parent_email"`
	Address        string      `db:"address"`
	Status         string      `db:"status"`
	EnrollmentDate core.Date   `db:"enrollment_date"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

type studentRepository struct {
	db core.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db core.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo studentRepository) boil(s student.Student) studentRow {
	return studentRow{
		ID:             s.ID,
		SchoolID:       s.SchoolID,
		StudentID:      s.StudentID,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		Gender:         s.Gender,
		DateOfBirth:    s.DateOfBirth,
		ClassID:        null.NewString(s.ClassID, s.ClassID != ""),
		ParentName:     s.ParentName,
		ParentPhone:    s.ParentPhone,
		ParentEmail:    s.ParentEmail,
		Address:        s.Address,
		Status:         s.Status,
		EnrollmentDate: s.EnrollmentDate,
		CreatedAt:      s.CreatedAt.UTC(),
		UpdatedAt:      s.UpdatedAt.UTC(),
	}
}

func (repo studentRepository) unboil(row studentRow) student.Student {
	return student.Student{
		ID:             row.ID,
		SchoolID:       row.SchoolID,
		StudentID:      row.StudentID,
		FirstName:      row.FirstName,
		LastName:       row.LastName,
		Gender:         row.Gender,
		DateOfBirth:    row.DateOfBirth,
		ClassID:        row.ClassID.String,
		ParentName:     row.ParentName,
		ParentPhone:    row.ParentPhone,
		ParentEmail:    row.ParentEmail,
		Address:        row.Address,
		Status:         row.Status,
		EnrollmentDate: row.EnrollmentDate,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("students", studentColumns), repo.boil(s)); err != nil {
		return student.Student{}, trapPgErr(err, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, schoolID string, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.Search != "" {
			where.search(filter.Search, "first_name", "last_name", "student_id", "parent_name")
		}
		if filter.ClassID != "" {
			where.add("class_id = ?", filter.ClassID)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.Gender != "" {
			where.add("gender = ?", filter.Gender)
		}
	}

	var rows []studentRow
	q := selectQuery("students", studentColumns) + where.String() +
		core.OrderByClause(ordering, "last_name ASC, first_name ASC, student_id ASC")
	if err := selectAll(ctx, repo.db, &rows, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unboil(row))
	}
	return students, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, schoolID, id string) (student.Student, error) {
	if !validID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := selectQuery("students", studentColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &row, q, schoolID, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return repo.unboil(row), nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student) (student.Student, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("students", studentColumns, "id", "school_id"), repo.boil(s))
	if err != nil {
		return student.Student{}, trapPgErr(err, "updating student")
	}
	if !found {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

// EnrollStudent locks the class row (SELECT ... FOR UPDATE) until the student is saved.
func (repo *studentRepository) EnrollStudent(ctx context.Context, s student.Student, isNew bool, seat student.SeatFunc) (_ student.Student, err error) {
	if !validID(s.ClassID) {
		return student.Student{}, class.ErrNotFound
	}
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var row classRow
	q := selectQuery("classes", classColumns) + " WHERE school_id = ? AND id = ? FOR UPDATE"
	if err = getOne(ctx, tx, &row, q, s.SchoolID, s.ClassID); err != nil {
		return student.Student{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	var enrolled int
	q = "SELECT COUNT(*) FROM students WHERE school_id = ? AND class_id = ? AND id <> ?"
	if err = getOne(ctx, tx, &enrolled, q, s.SchoolID, s.ClassID, s.ID); err != nil {
		return student.Student{}, trapPgErr(err, "counting students")
	}
	if err = seat(classRepository{}.unboil(row), enrolled); err != nil {
		return student.Student{}, err
	}

	if isNew {
		if _, err = namedExec(ctx, tx, insertQuery("students", studentColumns), repo.boil(s)); err != nil {
			return student.Student{}, trapPgErr(err, "inserting student")
		}
	} else {
		var found bool
		if found, err = namedExec(ctx, tx, updateQuery("students", studentColumns, "id", "school_id"), repo.boil(s)); err != nil {
			return student.Student{}, trapPgErr(err, "updating student")
		}
		if !found {
			err = student.ErrNotFound
			return student.Student{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return student.Student{}, errors.Wrap(err, "committing enrollment")
	}
	return s, nil
}

// DeleteStudent relies on ON DELETE CASCADE for grades, invoices and payments.
func (repo *studentRepository) DeleteStudent(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return student.ErrNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM students WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting student")
	}
	if n == 0 {
		return student.ErrNotFound
	}
	return nil
}
