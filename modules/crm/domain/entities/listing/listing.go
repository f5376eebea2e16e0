package listing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is the company listing a connection request targets. Listing CRUD
// lives outside this engine; reads here are batch joins only.
type Listing struct {
	ID           uuid.UUID       `json:"id"`
	CompanyName  string          `json:"company_name"`
	Industry     string          `json:"industry,omitempty"`
	AskingPrice  decimal.Decimal `json:"asking_price"`
	Revenue      decimal.Decimal `json:"revenue"`
	CashFlow     decimal.Decimal `json:"cash_flow"`
	Active       bool            `json:"active"`
	BrokerUserID *uuid.UUID      `json:"broker_user_id,omitempty"`
}

// Repository exposes bulk lookup only, mirroring profile.Repository.
type Repository interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Listing, error)
}
