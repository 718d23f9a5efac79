package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for user operations.
var (
	ErrUserNotFound   = fmt.Errorf("user %w", ErrNotFound)
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned by TokenVerifier for any malformed, forged or expired token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// User is a registered account (a household member).
// swagger:model User
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Family       Membership `json:"family_id" swaggertype:"string"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PhoneNumber  string     `json:"phone_number"`
	Address      string     `json:"address"`
	City         string     `json:"city"`
	State        string     `json:"state"`
	ZipCode      string     `json:"zip_code"`
	Country      string     `json:"country"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewUser returns a new unbound member User. ID is typically set by the repository on create.
func NewUser(email, firstName, lastName string, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:     email,
		Role:      RoleMember,
		Family:    Unbound(),
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// DisplayName returns "First Last", falling back to the email.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Profile holds the inert contact fields of an account.
type Profile struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Address     string
	City        string
	State       string
	ZipCode     string
	Country     string
}

// Apply copies the profile onto u.
func (p Profile) Apply(u *User) {
	u.FirstName = strings.TrimSpace(p.FirstName)
	u.LastName = strings.TrimSpace(p.LastName)
	u.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	u.Address = strings.TrimSpace(p.Address)
	u.City = strings.TrimSpace(p.City)
	u.State = strings.TrimSpace(p.State)
	u.ZipCode = strings.TrimSpace(p.ZipCode)
	u.Country = strings.TrimSpace(p.Country)
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Email    string
	Password string
	Profile  Profile
	// InvitationToken optionally ties the new account to an accepted invitation.
	InvitationToken string
}

// PasswordHasher hashes and verifies passwords with a slow salted algorithm.
type PasswordHasher interface {
	Hash(password string) (hash string, err error)
	Compare(hash, password string) error
}

// TokenIssuer issues signed session tokens for an account.
type TokenIssuer interface {
	Issue(user *User, familyName string) (string, error)
}

// TokenVerifier verifies a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (Claims, error)
}

// UserRepository defines the interface for account storage.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	ListByFamilyID(ctx context.Context, familyID string) ([]*User, error)
}

// UserService defines registration, login and profile operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (token string, user *User, err error)
	Login(ctx context.Context, email, password string) (token string, user *User, err error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, claims Claims, email *string, profile *Profile) (*User, error)
}
