package dtos

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
)

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// TransitionRequest carries one status transition.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected on_hold"`
}

// StageMoveRequest reassigns the pipeline stage; a null stage id unstages.
type StageMoveRequest struct {
	StageID *uuid.UUID `json:"stage_id"`
}

type CommentRequest struct {
	Comment string `json:"comment" validate:"max=4000"`
}

type CreateRequestDTO struct {
	BuyerID       *uuid.UUID `json:"buyer_id"`
	ListingID     uuid.UUID  `json:"listing_id" validate:"required"`
	PriorityScore float64    `json:"priority_score" validate:"gte=0"`
	SourceChannel string     `json:"source_channel" validate:"max=64"`
}

type StageDTO struct {
	Name            string          `json:"name" validate:"required,max=255"`
	Position        int             `json:"position" validate:"gte=0"`
	Color           string          `json:"color" validate:"omitempty,max=32"`
	Active          *bool           `json:"active"`
	Default         bool            `json:"default"`
	AutomationRules json.RawMessage `json:"automation_rules"`
}

func (d *StageDTO) ToEntity(id uuid.UUID) *stage.Stage {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return &stage.Stage{
		ID:              id,
		Name:            d.Name,
		Position:        d.Position,
		Color:           d.Color,
		Active:          active,
		Default:         d.Default,
		AutomationRules: d.AutomationRules,
	}
}

type StageReorderRequest struct {
	StageIDs []uuid.UUID `json:"stage_ids" validate:"required,min=1"`
}

type EnrichmentSubmitRequest struct {
	BuyerIDs []uuid.UUID `json:"buyer_ids" validate:"required,min=1"`
}
