package persistence

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/listing"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/profile"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence/models"
)

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDPtr(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgUUID(*id)
}

func asUUID(v pgtype.UUID) uuid.UUID {
	if !v.Valid {
		return uuid.Nil
	}
	return uuid.UUID(v.Bytes)
}

func asUUIDPtr(v pgtype.UUID) *uuid.UUID {
	if !v.Valid {
		return nil
	}
	id := uuid.UUID(v.Bytes)
	return &id
}

func pgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func pgTimePtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgTime(*t)
}

func asTime(v pgtype.Timestamptz) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return v.Time
}

func asTimePtr(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func asText(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func asDecimal(v pgtype.Numeric) decimal.Decimal {
	if !v.Valid || v.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(v.Int), v.Exp)
}

// uuidStrings renders ids for `= ANY($1::uuid[])` parameters.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func toDomainRequest(row *models.ConnectionRequest) *request.ConnectionRequest {
	return &request.ConnectionRequest{
		ID:             asUUID(row.ID),
		BuyerID:        asUUIDPtr(row.BuyerID),
		ListingID:      asUUID(row.ListingID),
		Status:         request.Status(row.Status),
		StageID:        asUUIDPtr(row.StageID),
		StageEnteredAt: asTimePtr(row.StageEnteredAt),
		PriorityScore:  row.PriorityScore.Float64,
		AdminComment:   asText(row.AdminComment),
		DecisionAt:     asTimePtr(row.DecisionAt),
		SourceChannel:  asText(row.SourceChannel),
		Outcome: request.OutcomeFromColumns(request.AttributionColumns{
			ApprovedBy: asUUIDPtr(row.ApprovedBy),
			ApprovedAt: asTimePtr(row.ApprovedAt),
			RejectedBy: asUUIDPtr(row.RejectedBy),
			RejectedAt: asTimePtr(row.RejectedAt),
			OnHoldBy:   asUUIDPtr(row.OnHoldBy),
			OnHoldAt:   asTimePtr(row.OnHoldAt),
		}),
		FollowUpBy:         asUUIDPtr(row.FollowUpBy),
		FollowUpAt:         asTimePtr(row.FollowUpAt),
		FlaggedBy:          asUUIDPtr(row.FlaggedBy),
		FlaggedAt:          asTimePtr(row.FlaggedAt),
		NDASigned:          row.NDASigned.Bool,
		FeeAgreementSigned: row.FeeAgreementSigned.Bool,
		CreatedAt:          asTime(row.CreatedAt),
		UpdatedAt:          asTime(row.UpdatedAt),
	}
}

func toDomainStage(row *models.PipelineStage) *stage.Stage {
	return &stage.Stage{
		ID:              asUUID(row.ID),
		Name:            row.Name,
		Position:        int(row.Position),
		Color:           asText(row.Color),
		Active:          row.Active,
		Default:         row.IsDefault,
		AutomationRules: json.RawMessage(row.AutomationRules),
		CreatedAt:       asTime(row.CreatedAt),
		UpdatedAt:       asTime(row.UpdatedAt),
	}
}

func toDomainProfile(row *models.Profile) *profile.Profile {
	return &profile.Profile{
		ID:        asUUID(row.ID),
		FirstName: asText(row.FirstName),
		LastName:  asText(row.LastName),
		Email:     asText(row.Email),
		BuyerType: asText(row.BuyerType),
		IsAdmin:   row.IsAdmin.Bool,
	}
}

func toDomainListing(row *models.Listing) *listing.Listing {
	return &listing.Listing{
		ID:           asUUID(row.ID),
		CompanyName:  asText(row.CompanyName),
		Industry:     asText(row.Industry),
		AskingPrice:  asDecimal(row.AskingPrice),
		Revenue:      asDecimal(row.Revenue),
		CashFlow:     asDecimal(row.CashFlow),
		Active:       row.Active,
		BrokerUserID: asUUIDPtr(row.BrokerUserID),
	}
}
