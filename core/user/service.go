package user

import (
	"context"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("user not found")
	ErrEmailExists    = core.NewConflictError("a user with this email already exists", "email")
	ErrUsernameExists = core.NewConflictError("a user with this username already exists", "username")
	ErrInvalidToken   = core.NewValidationError(errors.New("invalid or expired token"),
		core.FieldError{Field: "token", Error: "invalid or expired token"})
)

type (
	Repository interface {
		// CreateUser fails with ErrEmailExists or ErrUsernameExists on duplicates.
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, schoolID string, ids ...string) error
	}

	Service struct {
		repo     Repository
		mailSvc  core.EmailService
		tokenGen tokenGenerator
		appName  string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		mailSvc:  mailSvc,
		tokenGen: newTokenGenerator(conf),
		appName:  conf.AppName,
	}
}

// Create adds a User to the School schoolID (empty for super admins).
func (svc *Service) Create(ctx context.Context, schoolID string, nu NewUser) (User, error) {
	now := core.Now()
	usr := User{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryUsers(ctx, filter, OrderingFields.Clean(ordering))
}

// GetByID finds a User of School schoolID. An empty schoolID searches every School.
func (svc *Service) GetByID(ctx context.Context, schoolID, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id, SchoolID: schoolID})
}

func (svc *Service) GetByEmail(ctx context.Context, schoolID, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */), SchoolID: schoolID})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, schoolID, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */), SchoolID: schoolID})
}

// Update applies a validated UpdateUser on the User id.
func (svc *Service) Update(ctx context.Context, schoolID, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id, SchoolID: schoolID})
	if err != nil {
		return User{}, errors.Wrap(err, "finding user")
	}
	if err = uu.apply(&usr); err != nil {
		return User{}, errors.Wrap(err, "applying changes")
	}
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, schoolID string, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, schoolID, ids...)
}

// MakePasswordResetToken returns a one-time token allowing usr to pick a new password.
func (svc *Service) MakePasswordResetToken(usr User) (string, error) {
	return svc.tokenGen.makeToken(usr)
}

// RequestPasswordReset mails a password reset link to the active User owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, schoolID, email string) error {
	usr, err := svc.GetByEmail(ctx, schoolID, email)
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	if !usr.IsActive {
		return ErrNotFound
	}

	token, err := svc.tokenGen.makeToken(usr)
	if err != nil {
		return errors.Wrap(err, "making token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password reset on " + svc.appName,
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.Name,
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
	return nil
}

// ResetPassword sets a new password when the token is valid.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if core.IsNotFound(err) {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "finding user")
	}
	if err = svc.tokenGen.verifyToken(usr, rp.Token); err != nil {
		return User{}, ErrInvalidToken
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}
