package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/listing"
	"github.com/dealdesk/dealdesk/modules/crm/domain/entities/profile"
)

func testTime(day int) time.Time {
	return time.Date(2025, 3, day, 12, 0, 0, 0, time.UTC)
}

func dealWith(buyer *profile.Profile, l *listing.Listing, mut func(*request.ConnectionRequest)) *Deal {
	r := &request.ConnectionRequest{
		ID:        uuid.New(),
		ListingID: uuid.New(),
		Status:    request.StatusPending,
		CreatedAt: testTime(1),
	}
	if buyer != nil {
		buyerID := buyer.ID
		r.BuyerID = &buyerID
	}
	if l != nil {
		r.ListingID = l.ID
	}
	if mut != nil {
		mut(r)
	}
	return &Deal{Request: r, Buyer: buyer, Listing: l}
}

func TestDealFilter_EmptyFilterIsIdentity(t *testing.T) {
	deals := []*Deal{
		dealWith(nil, nil, nil),
		dealWith(&profile.Profile{ID: uuid.New(), FirstName: "Ines"}, nil, nil),
		dealWith(nil, &listing.Listing{ID: uuid.New(), CompanyName: "Bakery"}, nil),
	}

	out := DealFilter{}.Apply(deals)
	require.Equal(t, deals, out)
	// Identity returns the very same slice, not a filtered copy.
	require.True(t, &out[0] == &deals[0])
}

func TestDealFilter_SearchTextFuzzy(t *testing.T) {
	buyer := &profile.Profile{ID: uuid.New(), FirstName: "Marta", LastName: "Keller", Email: "marta@example.com"}
	l := &listing.Listing{ID: uuid.New(), CompanyName: "Riverside Logistics GmbH"}
	deals := []*Deal{
		dealWith(buyer, nil, nil),
		dealWith(nil, l, nil),
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.AdminComment = "waiting on NDA" }),
	}

	require.Len(t, DealFilter{SearchText: "keller"}.Apply(deals), 1)
	require.Len(t, DealFilter{SearchText: "riverside"}.Apply(deals), 1)
	require.Len(t, DealFilter{SearchText: "nda"}.Apply(deals), 1)
	require.Empty(t, DealFilter{SearchText: "zzzzz"}.Apply(deals))
}

func TestDealFilter_BuyerTypeRequiresBuyer(t *testing.T) {
	buyer := &profile.Profile{ID: uuid.New(), BuyerType: "strategic"}
	deals := []*Deal{
		dealWith(buyer, nil, nil),
		dealWith(&profile.Profile{ID: uuid.New(), BuyerType: "individual"}, nil, nil),
		dealWith(nil, nil, nil),
	}

	out := DealFilter{BuyerType: "strategic"}.Apply(deals)
	require.Len(t, out, 1)
	require.Equal(t, buyer, out[0].Buyer)
}

func TestMatchParams(t *testing.T) {
	stageID := uuid.New()
	listingID := uuid.New()
	approved := dealWith(nil, nil, func(r *request.ConnectionRequest) {
		r.Status = request.StatusApproved
		r.StageID = &stageID
	})
	pending := dealWith(nil, &listing.Listing{ID: listingID}, nil)
	deals := []*Deal{approved, pending}

	out := MatchParams(deals, &request.FindParams{})
	require.Equal(t, deals, out)
	// Callers reorder the result; it must never alias the cached slice.
	require.True(t, &out[0] != &deals[0])

	out = MatchParams(deals, &request.FindParams{Statuses: []request.Status{request.StatusApproved}})
	require.Equal(t, []*Deal{approved}, out)

	out = MatchParams(deals, &request.FindParams{StageIDs: []uuid.UUID{stageID}})
	require.Equal(t, []*Deal{approved}, out, "unstaged rows never match a stage filter")

	out = MatchParams(deals, &request.FindParams{ListingIDs: []uuid.UUID{listingID}})
	require.Equal(t, []*Deal{pending}, out)

	out = MatchParams(deals, &request.FindParams{
		Statuses:   []request.Status{request.StatusApproved},
		ListingIDs: []uuid.UUID{listingID},
	})
	require.Empty(t, out, "parameters are conjunctive")
}

func TestDealFilter_Assignment(t *testing.T) {
	me := uuid.New()
	other := uuid.New()
	deals := []*Deal{
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.FollowUpBy = &me }),
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.FollowUpBy = &other }),
		dealWith(nil, nil, nil),
	}

	require.Len(t, DealFilter{Assignment: AdminUnassigned}.Apply(deals), 1)
	mine := DealFilter{Assignment: AdminSpecific, AdminID: me}.Apply(deals)
	require.Len(t, mine, 1)
	require.Equal(t, me, *mine[0].Request.FollowUpBy)
}

func TestDealFilter_DocumentState(t *testing.T) {
	flags := []string{"nda_signed", "fee_agreement_signed"}
	deals := []*Deal{
		dealWith(nil, nil, func(r *request.ConnectionRequest) {
			r.NDASigned = true
			r.FeeAgreementSigned = true
		}),
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.NDASigned = true }),
		dealWith(nil, nil, nil),
	}

	require.Len(t, DealFilter{Documents: DocumentsComplete, DocumentFlags: flags}.Apply(deals), 1)
	require.Len(t, DealFilter{Documents: DocumentsIncomplete, DocumentFlags: flags}.Apply(deals), 2)
}

func TestDealFilter_DateRanges(t *testing.T) {
	from, to := testTime(5), testTime(10)
	decided := testTime(7)
	deals := []*Deal{
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.CreatedAt = testTime(3) }),
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.CreatedAt = testTime(7) }),
		dealWith(nil, nil, func(r *request.ConnectionRequest) {
			r.CreatedAt = testTime(7)
			r.DecisionAt = &decided
		}),
	}

	created := DealFilter{CreatedFrom: &from, CreatedTo: &to}.Apply(deals)
	require.Len(t, created, 2)

	// The decision range only matches decided requests; the two date fields
	// filter independently.
	decidedOut := DealFilter{DecisionFrom: &from, DecisionTo: &to}.Apply(deals)
	require.Len(t, decidedOut, 1)
	require.NotNil(t, decidedOut[0].Request.DecisionAt)
}

func TestDealFilter_PredicatesCombineWithAnd(t *testing.T) {
	me := uuid.New()
	strategic := &profile.Profile{ID: uuid.New(), BuyerType: "strategic", FirstName: "Nora"}
	deals := []*Deal{
		dealWith(strategic, nil, func(r *request.ConnectionRequest) { r.FollowUpBy = &me }),
		dealWith(strategic, nil, nil),
		dealWith(nil, nil, func(r *request.ConnectionRequest) { r.FollowUpBy = &me }),
	}

	out := DealFilter{
		BuyerType:  "strategic",
		Assignment: AdminSpecific,
		AdminID:    me,
	}.Apply(deals)
	require.Len(t, out, 1)
	require.Equal(t, strategic, out[0].Buyer)
}

func TestSortDeals_TotalOrderWithStableTieBreak(t *testing.T) {
	a := dealWith(nil, nil, func(r *request.ConnectionRequest) {
		r.PriorityScore = 5
		r.CreatedAt = testTime(2)
	})
	b := dealWith(nil, nil, func(r *request.ConnectionRequest) {
		r.PriorityScore = 5
		r.CreatedAt = testTime(4)
	})
	c := dealWith(nil, nil, func(r *request.ConnectionRequest) {
		r.PriorityScore = 9
		r.CreatedAt = testTime(1)
	})

	deals := []*Deal{a, b, c}
	SortDeals(deals, request.SortByPriority, false)
	require.Equal(t, []*Deal{c, b, a}, deals, "priority desc, created-at desc breaks the tie")

	shuffled := []*Deal{b, c, a}
	SortDeals(shuffled, request.SortByPriority, false)
	require.Equal(t, deals, shuffled, "same input set always yields the same sequence")

	SortDeals(deals, request.SortByPriority, true)
	require.Equal(t, []*Deal{b, a, c}, deals, "ascending flips the primary key only")
}

func TestSortDeals_NilDecisionOrdersFirst(t *testing.T) {
	decided := testTime(3)
	a := dealWith(nil, nil, func(r *request.ConnectionRequest) { r.DecisionAt = &decided })
	b := dealWith(nil, nil, nil)

	deals := []*Deal{a, b}
	SortDeals(deals, request.SortByDecision, true)
	require.Equal(t, []*Deal{b, a}, deals)
}
