package sqlxrepos

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var userColumns = []string{
	"id", "school_id", "name", "username", "email", "role", "is_active", "password_hash",
	"created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string      `db:"id"`
	SchoolID     null.String `db:"school_id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	PasswordHash []byte      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		SchoolID:     null.NewString(usr.SchoolID, usr.SchoolID != ""),
		Name:         usr.Name,
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		SchoolID:     row.SchoolID.String,
		Name:         row.Name,
		Username:     row.Username.String,
		Email:        row.Email.String,
		Role:         row.Role,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := namedExec(ctx, repo.db, insertQuery("users", userColumns), repo.boil(usr)); err != nil {
		return user.User{}, trapPgErr(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where whereClause
	if filter != nil {
		if filter.SchoolID != "" {
			where.add("school_id = ?", filter.SchoolID)
		}
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			where.search(filter.Search, "name", "username", "email")
		}
		if len(filter.Roles) > 0 {
			where.add("role IN (?)", filter.Roles)
		}
		if filter.IsActive != nil {
			where.add("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			where.add("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where.add("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	q := selectQuery("users", userColumns) + where.String() + core.OrderByClause(ordering, "name ASC, created_at ASC")
	if err := selectAll(ctx, repo.db, &rows, q, where.args...); err != nil {
		return nil, trapPgErr(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where whereClause
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		where.add("id = ?", filter.ID)
	case filter.Username != "":
		where.add("username = ?", filter.Username)
	case filter.Email != "":
		where.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		where.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	if filter.SchoolID != "" {
		where.add("school_id = ?", filter.SchoolID)
	}

	var row userRow
	if err := getOne(ctx, repo.db, &row, selectQuery("users", userColumns)+where.String(), where.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	found, err := namedExec(ctx, repo.db, updateQuery("users", userColumns, "id"), repo.boil(usr))
	if err != nil {
		return user.User{}, trapPgErr(err, "updating user")
	}
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, schoolID string, ids ...string) error {
	validIDs := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			validIDs = append(validIDs, id)
		}
	}
	if len(validIDs) == 0 {
		return nil
	}

	var where whereClause
	where.add("id IN (?)", validIDs)
	if schoolID != "" {
		where.add("school_id = ?", schoolID)
	}
	if _, err := execute(ctx, repo.db, "DELETE FROM users"+where.String(), where.args...); err != nil {
		return trapPgErr(err, "deleting users")
	}
	return nil
}
