package stage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage is a kanban bucket a request occupies independent of its status.
// Only cosmetic attributes (name, color, position) are configurable; the
// engine treats the automation rule blob as opaque.
type Stage struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Position int       `json:"position"`
	Color    string    `json:"color"`
	Active   bool      `json:"active"`
	Default  bool      `json:"default"`
	// AutomationRules is stored and returned verbatim.
	AutomationRules json.RawMessage `json:"automation_rules,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Repository interface {
	GetAll(ctx context.Context) ([]*Stage, error)
	GetActive(ctx context.Context) ([]*Stage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Stage, error)
	Create(ctx context.Context, s *Stage) (*Stage, error)
	Update(ctx context.Context, s *Stage) (*Stage, error)
	// Reorder rewrites positions for the given stage ids in order; positions
	// stay unique among active stages.
	Reorder(ctx context.Context, orderedIDs []uuid.UUID) error
	// Delete removes the stage without cascading: requests referencing it
	// become unstaged on read.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ByID indexes stages for join lookups.
func ByID(stages []*Stage) map[uuid.UUID]*Stage {
	m := make(map[uuid.UUID]*Stage, len(stages))
	for _, s := range stages {
		m[s.ID] = s
	}
	return m
}
