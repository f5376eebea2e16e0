package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/listing"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/profile"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/stage"
	"github.com/dealdesk/dealdesk/pkg/metrics"
)

// Deal is the assembled read model: one connection request joined with its
// buyer, listing, stage and every admin its attribution fields reference.
// Dangling references stay nil; consumers must tolerate them.
type Deal struct {
	Request *request.ConnectionRequest `json:"request"`
	Buyer   *profile.Profile           `json:"buyer,omitempty"`
	Listing *listing.Listing           `json:"listing,omitempty"`
	Stage   *stage.Stage               `json:"stage,omitempty"`
	// Admins resolves attribution actor ids (outcome, follow-up, flagged).
	Admins map[uuid.UUID]*profile.Profile `json:"admins,omitempty"`
}

// Assembler joins request rows with their related entities in bulk. The
// fetch count is fixed at one per entity type regardless of how many rows or
// distinct ids are involved.
type Assembler struct {
	profiles profile.Repository
	listings listing.Repository
	stages   stage.Repository
	log      *logrus.Logger
}

func NewAssembler(
	profiles profile.Repository,
	listings listing.Repository,
	stages stage.Repository,
	log *logrus.Logger,
) *Assembler {
	return &Assembler{
		profiles: profiles,
		listings: listings,
		stages:   stages,
		log:      log,
	}
}

// Assemble builds the Deal read model for the given rows. Buyers and admins
// share a single profile fetch; listings and stages get one fetch each, all
// issued concurrently. A failed fetch degrades that relation to nil across
// every row and assembly of the others proceeds.
func (a *Assembler) Assemble(ctx context.Context, requests []*request.ConnectionRequest) []*Deal {
	if len(requests) == 0 {
		return nil
	}

	profileIDs := collectProfileIDs(requests)
	listingIDs := collectListingIDs(requests)

	var (
		profilesByID map[uuid.UUID]*profile.Profile
		listingsByID map[uuid.UUID]*listing.Listing
		stagesByID   map[uuid.UUID]*stage.Stage
	)

	// Fetch failures are recorded per entity type, never propagated: a dead
	// relation renders as nils, the rest of the join still assembles.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		metrics.BulkFetchCalls.WithLabelValues("profile").Inc()
		found, err := a.profiles.GetByIDs(gctx, profileIDs)
		if err != nil {
			metrics.BulkFetchFailures.WithLabelValues("profile").Inc()
			a.log.WithError(err).Warn("assembler: profile bulk fetch failed, degrading to nils")
			return nil
		}
		profilesByID = make(map[uuid.UUID]*profile.Profile, len(found))
		for _, p := range found {
			profilesByID[p.ID] = p
		}
		return nil
	})
	g.Go(func() error {
		metrics.BulkFetchCalls.WithLabelValues("listing").Inc()
		found, err := a.listings.GetByIDs(gctx, listingIDs)
		if err != nil {
			metrics.BulkFetchFailures.WithLabelValues("listing").Inc()
			a.log.WithError(err).Warn("assembler: listing bulk fetch failed, degrading to nils")
			return nil
		}
		listingsByID = make(map[uuid.UUID]*listing.Listing, len(found))
		for _, l := range found {
			listingsByID[l.ID] = l
		}
		return nil
	})
	g.Go(func() error {
		metrics.BulkFetchCalls.WithLabelValues("stage").Inc()
		found, err := a.stages.GetAll(gctx)
		if err != nil {
			metrics.BulkFetchFailures.WithLabelValues("stage").Inc()
			a.log.WithError(err).Warn("assembler: stage fetch failed, degrading to nils")
			return nil
		}
		stagesByID = stage.ByID(found)
		return nil
	})
	_ = g.Wait()

	deals := make([]*Deal, len(requests))
	for i, r := range requests {
		d := &Deal{Request: r}
		if r.BuyerID != nil {
			d.Buyer = profilesByID[*r.BuyerID]
		}
		d.Listing = listingsByID[r.ListingID]
		if r.StageID != nil {
			d.Stage = stagesByID[*r.StageID]
		}
		if actorIDs := r.AttributionActorIDs(); len(actorIDs) > 0 {
			d.Admins = make(map[uuid.UUID]*profile.Profile, len(actorIDs))
			for _, id := range actorIDs {
				d.Admins[id] = profilesByID[id]
			}
		}
		deals[i] = d
	}
	return deals
}

// collectProfileIDs gathers the distinct buyer and attribution admin ids
// across all rows. One set, because buyers and admins live in one table.
func collectProfileIDs(requests []*request.ConnectionRequest) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if id == uuid.Nil {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, r := range requests {
		if r.BuyerID != nil {
			add(*r.BuyerID)
		}
		for _, id := range r.AttributionActorIDs() {
			add(id)
		}
	}
	return ids
}

func collectListingIDs(requests []*request.ConnectionRequest) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, r := range requests {
		if r.ListingID == uuid.Nil {
			continue
		}
		if _, ok := seen[r.ListingID]; ok {
			continue
		}
		seen[r.ListingID] = struct{}{}
		ids = append(ids, r.ListingID)
	}
	return ids
}
