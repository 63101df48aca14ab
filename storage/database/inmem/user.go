package inmemdb

import (
	"context"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func userColumn(u user.User, col string) interface{} {
	switch col {
	case "name":
		return u.Name
	case "username":
		return u.Username
	case "email":
		return u.Email
	case "role":
		return u.Role
	case "is_active":
		return u.IsActive
	case "created_at":
		return u.CreatedAt
	case "last_login":
		return u.LastLogin
	}
	return nil
}

// checkUniqueness enforces unique usernames and emails across every School.
func (repo *userRepository) checkUniqueness(usr user.User) error {
	for _, other := range repo.db.users {
		if other.ID == usr.ID {
			continue
		}
		if usr.Username != "" && other.Username == usr.Username {
			return user.ErrUsernameExists
		}
		if usr.Email != "" && other.Email == usr.Email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, qf *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := filter(repo.db.users, func(u user.User) bool {
		if qf == nil {
			return true
		}
		if qf.SchoolID != "" && u.SchoolID != qf.SchoolID {
			return false
		}
		if qf.Search != "" && !matchAny(qf.Search, u.Name, u.Username, u.Email) {
			return false
		}
		if len(qf.Roles) > 0 && !core.StringInSlice(u.Role, qf.Roles) {
			return false
		}
		if qf.IsActive != nil && u.IsActive != *qf.IsActive {
			return false
		}
		if !qf.CreatedFrom.IsZero() && u.CreatedAt.Before(qf.CreatedFrom) {
			return false
		}
		return qf.CreatedTo.IsZero() || !u.CreatedAt.After(qf.CreatedTo)
	})
	sortRecords(users, ordering, userColumn, asc("name"), asc("created_at"))
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, gf user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	match := func(u user.User) bool {
		switch {
		case gf.ID != "":
			return u.ID == gf.ID
		case gf.Username != "":
			return u.Username == gf.Username
		case gf.Email != "":
			return u.Email == gf.Email
		case gf.UsernameOrEmail != "":
			return u.Username == gf.UsernameOrEmail || u.Email == gf.UsernameOrEmail
		}
		return false
	}
	for _, u := range repo.db.users {
		if gf.SchoolID != "" && u.SchoolID != gf.SchoolID {
			continue
		}
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr); err != nil {
		return user.User{}, err
	}
	repo.db.users[usr.ID] = usr
	return usr, nil
}

// DeleteUsersByID deletes users of School schoolID (of any School when empty).
func (repo *userRepository) DeleteUsersByID(ctx context.Context, schoolID string, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	deleted := deleteWhere(repo.db.users, func(u user.User) bool {
		return (schoolID == "" || u.SchoolID == schoolID) && core.StringInSlice(u.ID, ids)
	})
	for id, p := range repo.db.payments {
		if core.StringInSlice(p.RecordedBy, deleted) {
			p.RecordedBy = ""
			repo.db.payments[id] = p
		}
	}
	return nil
}
