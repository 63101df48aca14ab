package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// Roles
const (
	RoleSuperAdmin  = "SUPER_ADMIN"  // platform operator, not bound to a School
	RoleSchoolAdmin = "SCHOOL_ADMIN" // manages one School
	RoleTeacher     = "TEACHER"
	RoleStudent     = "STUDENT"
	RoleParent      = "PARENT"
)

var (
	AllRoles    = []string{RoleSuperAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent}
	TenantRoles = []string{RoleSchoolAdmin, RoleTeacher, RoleStudent, RoleParent}

	rolePriorities = map[string]int{
		RoleSuperAdmin:  50,
		RoleSchoolAdmin: 40,
		RoleTeacher:     30,
		RoleParent:      20,
		RoleStudent:     10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "School Admin", Value: RoleSchoolAdmin},
	}

	OrderingFields = core.OrderingFields{
		"name":       "name",
		"username":   "username",
		"email":      "email",
		"role":       "role",
		"is_active":  "is_active",
		"created_at": "created_at",
		"last_login": "last_login",
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	SchoolID     string    `json:"school_id,omitempty"` // empty for SUPER_ADMIN
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsSuperAdmin() bool { return u.Role == RoleSuperAdmin }

// IsAdmin reports whether u administers a School (super admins administer them all).
func (u User) IsAdmin() bool { return u.Role == RoleSchoolAdmin || u.Role == RoleSuperAdmin }

func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent }
func (u User) IsParent() bool  { return u.Role == RoleParent }

// BelongsTo reports whether u may act within the School schoolID.
func (u User) BelongsTo(schoolID string) bool {
	return u.IsSuperAdmin() || (u.SchoolID != "" && u.SchoolID == schoolID)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required,max=200"`
	Username        string `json:"username" validate:"omitempty,min=4,max=50,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"required,tenantrole"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Nil fields are left untouched.
type UpdateUser struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	Username        *string `json:"username" validate:"omitempty,min=4,max=50,alphanum_"`
	Email           *string `json:"email" validate:"omitempty,email"`
	IsActive        *bool   `json:"is_active"`
	Role            *string `json:"role" validate:"omitempty,tenantrole"`
	Password        string  `json:"password" validate:"omitempty"`
	PasswordConfirm string  `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	orig User
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	uu.Name = core.CleanStringPtr(uu.Name)
	uu.Username = core.CleanStringPtr(uu.Username, true /* lower */)
	uu.Email = core.CleanStringPtr(uu.Email, true /* lower */)
	uu.Role = core.CleanStringPtr(uu.Role)
	uu.orig = origUsr
	return validate.Struct(uu)
}

// IsPrivileged reports whether uu touches fields only admins may change.
func (uu UpdateUser) IsPrivileged() bool {
	return uu.IsActive != nil || uu.Role != nil || uu.Username != nil || uu.Email != nil
}

func (uu UpdateUser) apply(u *User) error {
	if uu.Name != nil {
		u.Name = *uu.Name
	}
	if uu.Username != nil {
		u.Username = *uu.Username
	}
	if uu.Email != nil {
		u.Email = *uu.Email
	}
	if uu.IsActive != nil {
		u.IsActive = *uu.IsActive
	}
	if uu.Role != nil {
		u.Role = *uu.Role
	}
	if uu.Password != "" {
		return u.SetPassword(uu.Password)
	}
	return nil
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// GetFilter finds a single User. The first non-empty lookup field wins;
// SchoolID, when set, restricts the lookup to one tenant.
type GetFilter struct {
	ID              string
	SchoolID        string
	Username        string
	Email           string
	UsernameOrEmail string
}

type QueryFilter struct {
	SchoolID    string
	Search      string
	Roles       []string
	IsActive    *bool
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
