package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
)

var classColumns = []string{
	"id", "school_id", "name", "level", "section", "academic_year", "capacity", "homeroom_teacher_id",
	"status", "created_at", "updated_at",
}

type classRow struct {
	ID                string      `db:"id"`
	SchoolID          string      `db:"school_id"`
	Name              string      `db:"name"`
	Level             string      `db:"level"`
	Section           string      `db:"section"`
	AcademicYear      string      `db:"academic_year"`
	Capacity          int         `db:"capacity"`
	HomeroomTeacherID null.String `db:"homeroom_teacher_id"`
	Status            string      `db:"status"`
	CreatedAt         time.Time   `db:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at"`
}

type classRepository struct {
	db core.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db core.DB) class.Repository {
	return &classRepository{db: db}
}

func (repo classRepository) boil(c class.Class) classRow {
	return classRow{
		ID:                c.ID,
		SchoolID:          c.SchoolID,
		Name:              c.Name,
		Level:             c.Level,
		Section:           c.Section,
		AcademicYear:      c.AcademicYear,
		Capacity:          c.Capacity,
		HomeroomTeacherID: null.NewString(c.HomeroomTeacherID, c.HomeroomTeacherID != ""),
		Status:            c.Status,
		CreatedAt:         c.CreatedAt.UTC(),
		UpdatedAt:         c.UpdatedAt.UTC(),
	}
}

func (repo classRepository) unboil(row classRow) class.Class {
	return class.Class{
		ID:                row.ID,
		SchoolID:          row.SchoolID,
		Name:              row.Name,
		Level:             row.Level,
		Section:           row.Section,
		AcademicYear:      row.AcademicYear,
		Capacity:          row.Capacity,
		HomeroomTeacherID: row.HomeroomTeacherID.String,
		Status:            row.Status,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func (repo *classRepository) CreateClass(ctx context.Context, c class.Class) (class.Class, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("classes", classColumns), repo.boil(c)); err != nil {
		return class.Class{}, trapPgErr(err, "inserting class")
	}
	return c, nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, schoolID string, filter *class.QueryFilter, ordering []core.DBOrdering) ([]class.Class, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.Search != "" {
			where.search(filter.Search, "name", "section")
		}
		if filter.Level != "" {
			where.add("level = ?", filter.Level)
		}
		if filter.AcademicYear != "" {
			where.add("academic_year = ?", filter.AcademicYear)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.TeacherID != "" {
			where.add("homeroom_teacher_id = ?", filter.TeacherID)
		}
	}

	var rows []classRow
	q := selectQuery("classes", classColumns) + where.String() + core.OrderByClause(ordering, "academic_year DESC, name ASC")
	if err := selectAll(ctx, repo.db, &rows, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, repo.unboil(row))
	}
	return classes, nil
}

func (repo *classRepository) GetClass(ctx context.Context, schoolID, id string) (class.Class, error) {
	if !validID(id) {
		return class.Class{}, class.ErrNotFound
	}
	var row classRow
	q := selectQuery("classes", classColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &row, q, schoolID, id); err != nil {
		return class.Class{}, trapNoRowsErr(err, class.ErrNotFound, "finding class")
	}
	return repo.unboil(row), nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, c class.Class) (class.Class, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("classes", classColumns, "id", "school_id"), repo.boil(c))
	if err != nil {
		return class.Class{}, trapPgErr(err, "updating class")
	}
	if !found {
		return class.Class{}, class.ErrNotFound
	}
	return c, nil
}

// DeleteClass fails with class.ErrHasStudents while students reference the Class.
func (repo *classRepository) DeleteClass(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return class.ErrNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM classes WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting class", class.ErrHasStudents)
	}
	if n == 0 {
		return class.ErrNotFound
	}
	return nil
}

func (repo *classRepository) CountStudents(ctx context.Context, schoolID, id string) (int, error) {
	if !validID(id) {
		return 0, nil
	}
	var n int
	if err := getOne(ctx, repo.db, &n, "SELECT COUNT(*) FROM students WHERE school_id = ? AND class_id = ?", schoolID, id); err != nil {
		return 0, trapPgErr(err, "counting students")
	}
	return n, nil
}
