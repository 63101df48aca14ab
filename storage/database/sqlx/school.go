package sqlxrepos

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
)

var schoolColumns = []string{"id", "name", "subdomain", "email", "phone", "address", "status", "created_at", "updated_at"}

type schoolRepository struct {
	db core.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db core.DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, s school.School) (school.School, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("schools", schoolColumns), s); err != nil {
		return school.School{}, trapPgErr(err, "inserting school")
	}
	return s, nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context, filter *school.QueryFilter, ordering []core.DBOrdering) ([]school.School, error) {
	var where whereClause
	if filter != nil {
		if filter.Search != "" {
			where.search(filter.Search, "name", "subdomain", "email")
		}
		if filter.Status != "" {
			where.add("status = ?", filter.Status)
		}
	}

	schools := make([]school.School, 0)
	q := selectQuery("schools", schoolColumns) + where.String() + core.OrderByClause(ordering, "name ASC")
	if err := selectAll(ctx, repo.db, &schools, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying schools")
	}
	return schools, nil
}

func (repo *schoolRepository) get(ctx context.Context, col, val string) (school.School, error) {
	var s school.School
	q := selectQuery("schools", schoolColumns) + " WHERE " + col + " = ?"
	if err := getOne(ctx, repo.db, &s, q, val); err != nil {
		return school.School{}, trapNoRowsErr(err, school.ErrNotFound, "finding school")
	}
	return s, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	if !validID(id) {
		return school.School{}, school.ErrNotFound
	}
	return repo.get(ctx, "id", id)
}

func (repo *schoolRepository) GetSchoolBySubdomain(ctx context.Context, subdomain string) (school.School, error) {
	return repo.get(ctx, "subdomain", subdomain)
}

func (repo *schoolRepository) UpdateSchool(ctx context.Context, s school.School) (school.School, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("schools", schoolColumns, "id"), s)
	if err != nil {
		return school.School{}, trapPgErr(err, "updating school")
	}
	if !found {
		return school.School{}, school.ErrNotFound
	}
	return s, nil
}

// DeleteSchool relies on ON DELETE CASCADE for the records the School owns.
func (repo *schoolRepository) DeleteSchool(ctx context.Context, id string) error {
	if !validID(id) {
		return school.ErrNotFound
	}
	n, err := execute(ctx, repo.db, "DELETE FROM schools WHERE id = ?", id)
	if err != nil {
		return trapPgErr(err, "deleting school")
	}
	if n == 0 {
		return school.ErrNotFound
	}
	return nil
}
