package request

import (
	"time"

	"github.com/google/uuid"
)

// Status is the bounded lifecycle vocabulary of a connection request. Any
// status may move to any other; reopening a decided request is legal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusOnHold   Status = "on_hold"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusOnHold:
		return true
	}
	return false
}

// IsTerminal reports whether the status is a decided outcome. Terminal
// states are retained for audit, never hard-deleted.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ConnectionRequest is a prospective buyer's interest in a listing, the unit
// that moves through the pipeline. Status changes go through Transition
// exclusively; partial edits to status fields are not part of the contract.
type ConnectionRequest struct {
	ID uuid.UUID `json:"id"`
	// BuyerID is nil for lead-only requests captured without an account.
	BuyerID   *uuid.UUID `json:"buyer_id,omitempty"`
	ListingID uuid.UUID  `json:"listing_id"`
	Status    Status     `json:"status"`
	// StageID references a pipeline stage; nil (or a deleted stage) means
	// the request is unstaged.
	StageID        *uuid.UUID `json:"pipeline_stage_id,omitempty"`
	StageEnteredAt *time.Time `json:"stage_entered_at,omitempty"`
	PriorityScore  float64    `json:"priority_score"`
	AdminComment   string     `json:"admin_comment,omitempty"`
	DecisionAt     *time.Time `json:"decision_at,omitempty"`
	SourceChannel  string     `json:"source_channel,omitempty"`

	// Outcome is the single tagged attribution union. It flattens to the
	// three nullable column pairs only at the storage boundary.
	Outcome Outcome `json:"outcome"`

	FollowUpBy *uuid.UUID `json:"follow_up_by,omitempty"`
	FollowUpAt *time.Time `json:"follow_up_at,omitempty"`
	FlaggedBy  *uuid.UUID `json:"flagged_by,omitempty"`
	FlaggedAt  *time.Time `json:"flagged_at,omitempty"`

	NDASigned          bool `json:"nda_signed"`
	FeeAgreementSigned bool `json:"fee_agreement_signed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentFlag resolves one of the configurable document flag names.
// Unknown names are false, never an error: flag names are cosmetic config.
func (r *ConnectionRequest) DocumentFlag(name string) bool {
	switch name {
	case "nda_signed":
		return r.NDASigned
	case "fee_agreement_signed":
		return r.FeeAgreementSigned
	}
	return false
}

// DocumentsComplete reports whether both configured document flags hold.
func (r *ConnectionRequest) DocumentsComplete(flags []string) bool {
	for _, flag := range flags {
		if !r.DocumentFlag(flag) {
			return false
		}
	}
	return len(flags) > 0
}
