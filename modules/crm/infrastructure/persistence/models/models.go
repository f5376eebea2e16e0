package models

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// DB row shapes. Attribution is flattened here and only here; the domain
// carries it as a tagged union.
type ConnectionRequest struct {
	ID                 pgtype.UUID
	BuyerID            pgtype.UUID
	ListingID          pgtype.UUID
	Status             string
	StageID            pgtype.UUID
	StageEnteredAt     pgtype.Timestamptz
	PriorityScore      pgtype.Float8
	AdminComment       pgtype.Text
	DecisionAt         pgtype.Timestamptz
	SourceChannel      pgtype.Text
	ApprovedBy         pgtype.UUID
	ApprovedAt         pgtype.Timestamptz
	RejectedBy         pgtype.UUID
	RejectedAt         pgtype.Timestamptz
	OnHoldBy           pgtype.UUID
	OnHoldAt           pgtype.Timestamptz
	FollowUpBy         pgtype.UUID
	FollowUpAt         pgtype.Timestamptz
	FlaggedBy          pgtype.UUID
	FlaggedAt          pgtype.Timestamptz
	NDASigned          pgtype.Bool
	FeeAgreementSigned pgtype.Bool
	CreatedAt          pgtype.Timestamptz
	UpdatedAt          pgtype.Timestamptz
}

type PipelineStage struct {
	ID              pgtype.UUID
	Name            string
	Position        int32
	Color           pgtype.Text
	Active          bool
	IsDefault       bool
	AutomationRules []byte
	CreatedAt       pgtype.Timestamptz
	UpdatedAt       pgtype.Timestamptz
}

type Profile struct {
	ID        pgtype.UUID
	FirstName pgtype.Text
	LastName  pgtype.Text
	Email     pgtype.Text
	BuyerType pgtype.Text
	IsAdmin   pgtype.Bool
}

type Listing struct {
	ID           pgtype.UUID
	CompanyName  pgtype.Text
	Industry     pgtype.Text
	AskingPrice  pgtype.Numeric
	Revenue      pgtype.Numeric
	CashFlow     pgtype.Numeric
	Active       bool
	BrokerUserID pgtype.UUID
}
