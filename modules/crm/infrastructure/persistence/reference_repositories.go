package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/listing"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/profile"
	"github.com/dealdesk/dealdesk/modules/crm/infrastructure/persistence/models"
	"github.com/dealdesk/dealdesk/pkg/composables"
)

// Profiles and listings are owned elsewhere; this engine only bulk-reads
// them for batch joins. One query per call regardless of id count.

const (
	profileBulkQuery = `
        SELECT p.id, p.first_name, p.last_name, p.email, p.buyer_type, p.is_admin
        FROM profiles p
        WHERE p.id = ANY($1::uuid[])`

	listingBulkQuery = `
        SELECT l.id, l.company_name, l.industry, l.asking_price, l.revenue, l.cash_flow, l.active, l.broker_user_id
        FROM listings l
        WHERE l.id = ANY($1::uuid[])`
)

type PgProfileRepository struct{}

func NewProfileRepository() profile.Repository {
	return &PgProfileRepository{}
}

func (g *PgProfileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*profile.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, profileBulkQuery, uuidStrings(ids))
	if err != nil {
		return nil, errors.Wrap(err, "failed to bulk fetch profiles")
	}
	defer rows.Close()

	var result []*profile.Profile
	for rows.Next() {
		var m models.Profile
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.BuyerType, &m.IsAdmin); err != nil {
			return nil, err
		}
		result = append(result, toDomainProfile(&m))
	}
	return result, rows.Err()
}

type PgListingRepository struct{}

func NewListingRepository() listing.Repository {
	return &PgListingRepository{}
}

func (g *PgListingRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*listing.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listingBulkQuery, uuidStrings(ids))
	if err != nil {
		return nil, errors.Wrap(err, "failed to bulk fetch listings")
	}
	defer rows.Close()

	var result []*listing.Listing
	for rows.Next() {
		var m models.Listing
		if err := rows.Scan(&m.ID, &m.CompanyName, &m.Industry, &m.AskingPrice, &m.Revenue, &m.CashFlow, &m.Active, &m.BrokerUserID); err != nil {
			return nil, err
		}
		result = append(result, toDomainListing(&m))
	}
	return result, rows.Err()
}
