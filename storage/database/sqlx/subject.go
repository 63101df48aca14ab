package sqlxrepos

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/subject"
)

var subjectColumns = []string{
	"id", "school_id", "code", "name", "level", "coefficient", "description", "status", "created_at", "updated_at",
}

type subjectRepository struct {
	db core.DB
}

var _ subject.Repository = (*subjectRepository)(nil) // interface compliance check

func NewSubjectRepository(db core.DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("subjects", subjectColumns), s); err != nil {
		return subject.Subject{}, trapPgErr(err, "inserting subject")
	}
	return s, nil
}

func (repo *subjectRepository) QuerySubjects(ctx context.Context, schoolID string, filter *subject.QueryFilter, ordering []core.DBOrdering) ([]subject.Subject, error) {
	var where whereClause
	where.add("school_id = ?", schoolID)
	if filter != nil {
		if filter.Search != "" {
			where.search(filter.Search, "code", "name")
		}
		if filter.Level != "" {
			where.add("level = ?", filter.Level)
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
	}

	subjects := make([]subject.Subject, 0)
	q := selectQuery("subjects", subjectColumns) + where.String() + core.OrderByClause(ordering, "level ASC, code ASC")
	if err := selectAll(ctx, repo.db, &subjects, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying subjects")
	}
	return subjects, nil
}

func (repo *subjectRepository) GetSubject(ctx context.Context, schoolID, id string) (subject.Subject, error) {
	if !validID(id) {
		return subject.Subject{}, subject.ErrNotFound
	}
	var s subject.Subject
	q := selectQuery("subjects", subjectColumns) + " WHERE school_id = ? AND id = ?"
	if err := getOne(ctx, repo.db, &s, q, schoolID, id); err != nil {
		return subject.Subject{}, trapNoRowsErr(err, subject.ErrNotFound, "finding subject")
	}
	return s, nil
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, s subject.Subject) (subject.Subject, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("subjects", subjectColumns, "id", "school_id"), s)
	if err != nil {
		return subject.Subject{}, trapPgErr(err, "updating subject")
	}
	if !found {
		return subject.Subject{}, subject.ErrNotFound
	}
	return s, nil
}

// DeleteSubject fails with subject.ErrHasGrades while grades reference the Subject.
func (repo *subjectRepository) DeleteSubject(ctx context.Context, schoolID, id string) error {
	if !validID(id) {
		return subject.ErrNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM subjects WHERE school_id = ? AND id = ?", schoolID, id)
	if err != nil {
		return trapPgErr(err, "deleting subject", subject.ErrHasGrades)
	}
	if n == 0 {
		return subject.ErrNotFound
	}
	return nil
}
