package profile

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Profile is a row in the shared identity table: buyers and admins alike.
// The pipeline engine only ever reads profiles, in batch, by id.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	// BuyerType distinguishes e.g. individual buyers from funds/searchers.
	BuyerType string `json:"buyer_type,omitempty"`
	IsAdmin   bool   `json:"is_admin"`
}

func (p *Profile) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Repository exposes bulk lookup only: one fetch resolves every id the
// caller collected, never one fetch per row.
type Repository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Profile, error)
}
