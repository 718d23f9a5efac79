package domain

import (
	"context"
	"time"
)

// Family is the tenant: every account, chore and invitation is scoped to one.
// swagger:model Family
type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewFamily returns a new Family owned by createdBy. ID is set by the repository on create.
func NewFamily(name, createdBy string, createdAt time.Time) *Family {
	return &Family{
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// FamilyRepository defines the interface for family storage.
type FamilyRepository interface {
	// CreateForOwner inserts the family and binds family.CreatedBy to it in one unit of work.
	// It returns ErrAlreadyInFamily, leaving nothing behind, when the owner is already bound.
	CreateForOwner(ctx context.Context, family *Family) error
	GetByID(ctx context.Context, id string) (*Family, error)
	Update(ctx context.Context, family *Family) error
	// Delete removes the family and leaves its former members unbound.
	Delete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, params PaginationParams) ([]*Family, int, error)
}

// FamilyService defines family operations. Every method takes the caller's verified claims.
type FamilyService interface {
	Create(ctx context.Context, claims Claims, name string) (family *Family, token string, err error)
	Get(ctx context.Context, claims Claims, id string) (*Family, error)
	Rename(ctx context.Context, claims Claims, id, name string) (*Family, error)
	ListMembers(ctx context.Context, claims Claims, id string) ([]*User, error)
	// Delete is reserved to the family's creator and returns a fresh, unbound token for the caller.
	Delete(ctx context.Context, claims Claims, id string) (token string, err error)
	ListAll(ctx context.Context, claims Claims, params PaginationParams) ([]*Family, int, error)
}
