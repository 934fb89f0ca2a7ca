package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrUserNotFound is returned by the persistence layer when no row matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrUniqueViolation is returned when a write collides with a unique constraint.
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// User is the account record backing authentication.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	IsActive     bool
	DateJoined   time.Time
	LastLogin    *time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the user carries the staff flag.
func (u *User) IsAdmin() bool {
	return u != nil && u.IsStaff
}

// FullName joins first and last name, trimming the gap when one is empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserPatch carries the fields of a partial update. Nil pointers are left untouched.
type UserPatch struct {
	Username  *string
	FirstName *string
	LastName  *string
	Email     *string
}

// Fields lists the names of the fields set on the patch.
func (p UserPatch) Fields() []string {
	fields := make([]string, 0, 4)
	if p.Username != nil {
		fields = append(fields, "username")
	}
	if p.FirstName != nil {
		fields = append(fields, "first_name")
	}
	if p.LastName != nil {
		fields = append(fields, "last_name")
	}
	if p.Email != nil {
		fields = append(fields, "email")
	}
	return fields
}

// Empty reports whether no field is set.
func (p UserPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Apply copies the set fields onto the user.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
}
