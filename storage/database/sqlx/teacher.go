package sqlxrepos

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/teacher"
)

var teacherColumns = []string{
	"id", "school_id", "employee_id", "first_name", "last_name", "email", "phone", "specialization",
	"hire_date", "status", "created_at", "updated_at",
}

type teacherRepository struct {
	db core.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db core.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) CreateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("teachers", teacherColumns), t); err != nil {
		return teacher.Teacher{}, trapPgErr(err, "inserting teacher")
	}
	return t, nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context, schoolID string, filter *teacher.QueryFilter, ordering []core.DBOrdering) ([]teacher.Teacher, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.Search != "" {
			where.search(filter.Search, "first_name", "last_name", "email", "employee_id")
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
		if filter.Specialization != "" {
			where.add("specialization ILIKE ?", "%"+filter.Specialization+"%")
		}
	}

	teachers := make([]teacher.Teacher, 0)
	q := selectQuery("teachers", teacherColumns) + where.String() + core.OrderByClause(ordering, "last_name ASC, first_name ASC")
	if err := selectAll(ctx, repo.db, &teachers, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying teachers")
	}
	return teachers, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, schoolID, id string) (teacher.Teacher, error) {
	if !validID(id) {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	var t teacher.Teacher
	q := selectQuery("teachers", teacherColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &t, q, schoolID, id); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound, "finding teacher")
	}
	return t, nil
}

func (repo *teacherRepository) UpdateTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("teachers", teacherColumns, "id", "school_id"), t)
	if err != nil {
		return teacher.Teacher{}, trapPgErr(err, "updating teacher")
	}
	if !found {
		return teacher.Teacher{}, teacher.ErrNotFound
	}
	return t, nil
}

// DeleteTeacher relies on the foreign keys to drop schedule entries and unlink classes and grades.
func (repo *teacherRepository) DeleteTeacher(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return teacher.ErrNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM teachers WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting teacher")
	}
	if n == 0 {
		return teacher.ErrNotFound
	}
	return nil
}
