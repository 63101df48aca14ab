package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/user"
	logsvc "github.com/trezcool/academia/services/logger"
)

// NewLogger returns a logger writing nowhere.
func NewLogger() core.Logger {
	return logsvc.NewRollbarLogger(zap.NewNop().Sugar(), core.NewTestConfig())
}

func CreateSchool(t *testing.T, repo school.Repository, name, subdomain, status string) school.School {
	t.Helper()
	now := core.Now()
	if status == "" {
		status = school.StatusActive
	}
	s, err := repo.CreateSchool(context.Background(), school.School{
		ID:        uuid.New().String(),
		Name:      name,
		Subdomain: subdomain,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	return s
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	schoolID, name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
