// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"

	"inkwell/internal/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Role is the access level of a user.
type Role string

const (
	RoleReader Role = "reader"
	RoleWriter Role = "writer"
	RoleAdmin  Role = "admin"
)

// ParseRole accepts one of the enumerated roles; an empty string yields the default.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return RoleReader, nil
	case RoleReader:
		return RoleReader, nil
	case RoleWriter:
		return RoleWriter, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", NewValidationError("role must be one of reader, writer, admin")
	}
}

// ParseSelfServiceRole parses a role chosen at sign-up. Admin is granted
// only by an operator, never requested.
func ParseSelfServiceRole(s string) (Role, error) {
	role, err := ParseRole(s)
	if err != nil {
		return "", err
	}
	if role == RoleAdmin {
		return "", NewValidationError("role must be reader or writer")
	}
	return role, nil
}

// CanPublish reports whether the role may author blogs.
func (r Role) CanPublish() bool {
	return r == RoleWriter || r == RoleAdmin
}

// ImageRef points at an object in external storage.
type ImageRef struct {
	URL      string `gorm:"column:url;not null;default:''" json:"url"`
	PublicID string `gorm:"column:public_id;not null;default:''" json:"public_id"`
}

// User represents a registered account.
type User struct {
	ID        string   `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Name      string   `gorm:"size:80;not null" json:"name"`
	Email     string   `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Phone     string   `gorm:"size:20;uniqueIndex;not null" json:"phone"`
	Password  string   `gorm:"size:255;not null" json:"-"`
	Role      Role     `gorm:"type:varchar(16);not null;default:reader" json:"role"`
	Education string   `gorm:"size:120;not null;default:''" json:"education"`
	Photo     ImageRef `gorm:"embedded;embeddedPrefix:photo_" json:"photo"`
	// BlogCount is not persisted; computed at query time
	BlogCount int64     `gorm:"->;-:migration" json:"no_ofBlogs"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate assigns an id when the caller did not.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// NewUserInput is the raw registration payload.
type NewUserInput struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Education string `json:"education"`
}

// NewUser validates the input and returns a User ready for storage with its
// password hashed. Every failure is a ValidationError.
func NewUser(in NewUserInput) (*User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)
	education := strings.TrimSpace(in.Education)

	if email == "" || phone == "" || in.Password == "" {
		return nil, NewValidationError("Name, email, phone, and password are required")
	}
	checks := []func() error{
		func() error { return validation.ValidateName(name) },
		func() error { return validation.ValidateEmail(email) },
		func() error { return validation.ValidatePhone(phone) },
		func() error { return validation.ValidatePassword(in.Password) },
		func() error { return validation.ValidateEducation(education) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return nil, NewValidationError(err.Error())
		}
	}

	role, err := ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewInternalError(err)
	}

	return &User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Password:  string(hash),
		Role:      role,
		Education: education,
	}, nil
}

// CheckPassword compares a plaintext password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	if u == nil || u.Password == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// ProfileUpdate holds optional profile changes; nil fields are left alone.
type ProfileUpdate struct {
	Name      *string `json:"name"`
	Education *string `json:"education"`
}

// Apply validates and applies the update in place.
func (p ProfileUpdate) Apply(u *User) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := validation.ValidateName(name); err != nil {
			return NewValidationError(err.Error())
		}
		u.Name = name
	}
	if p.Education != nil {
		education := strings.TrimSpace(*p.Education)
		if err := validation.ValidateEducation(education); err != nil {
			return NewValidationError(err.Error())
		}
		u.Education = education
	}
	return nil
}
