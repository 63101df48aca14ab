package main

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

type newUserFlags struct {
	school string // subdomain, empty for super admins
	name   string
	uname  string
	email  string
	role   string
}

func (cli *commandLine) addUserCmd() *cobra.Command {
	var flags newUserFlags
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user; the password is prompted",
		Long: "Create or update a user; the password is prompted.\n" +
			"Without --school, the user is a super admin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.readPassword("Enter password")
			if err != nil {
				return err
			}
			usr, err := cli.addUser(flags, pwd)
			if err != nil {
				return err
			}
			cli.printf("user %q saved with role %s\n", usr.Username, usr.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.school, "school", "", "subdomain of the school of the user")
	cmd.Flags().StringVar(&flags.name, "name", "", "full name")
	cmd.Flags().StringVar(&flags.uname, "username", "", "username")
	cmd.Flags().StringVar(&flags.email, "email", "", "email")
	cmd.Flags().StringVar(&flags.role, "role", user.RoleSchoolAdmin, "role of a school user")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// addUser updates or creates a user.User
func (cli *commandLine) addUser(flags newUserFlags, pwd string) (user.User, error) {
	ctx := context.Background()
	uname := core.CleanString(flags.uname, true /* lower */)
	email := core.CleanString(flags.email, true /* lower */)

	var schoolID string
	role := user.RoleSuperAdmin
	if sub := core.CleanString(flags.school, true /* lower */); sub != "" {
		sch, err := cli.schoolSvc.Resolve(ctx, sub)
		if err != nil {
			return user.User{}, err
		}
		schoolID = sch.ID
		role = core.CleanString(flags.role)
		if !core.StringInSlice(role, user.TenantRoles) {
			return user.User{}, core.NewFieldError("role", "role must be one of "+strings.Join(user.TenantRoles, ", "))
		}
	}

	now := core.Now()
	isNew := false
	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: uname})
	switch {
	case err == nil:
		if usr.SchoolID != schoolID {
			return user.User{}, core.NewConflictError("the user belongs to another school", "username")
		}
	case core.IsNotFound(err):
		isNew = true
		usr = user.User{ID: uuid.New().String(), SchoolID: schoolID, Username: uname, CreatedAt: now}
	default:
		return user.User{}, err
	}

	if name := core.CleanString(flags.name); name != "" {
		usr.Name = name
	}
	if usr.Name == "" {
		usr.Name = uname
	}
	if email != "" {
		usr.Email = email
	}
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return user.User{}, err
	}

	if isNew {
		return cli.usrRepo.CreateUser(ctx, usr)
	}
	return cli.usrRepo.UpdateUser(ctx, usr)
}
