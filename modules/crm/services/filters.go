package services

import (
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/dealdesk/dealdesk/modules/crm/domain/aggregates/request"
)

// AdminAssignment filters on the follow-up assignee.
type AdminAssignment string

const (
	AdminAny        AdminAssignment = ""
	AdminUnassigned AdminAssignment = "unassigned"
	AdminSpecific   AdminAssignment = "specific"
)

// DocumentState filters on the configured document flag combination.
type DocumentState string

const (
	DocumentsAny        DocumentState = ""
	DocumentsComplete   DocumentState = "complete"
	DocumentsIncomplete DocumentState = "incomplete"
)

// DealFilter is a conjunction of independent predicates over assembled
// deals. The zero value is the identity filter: it selects everything and
// Apply returns its input untouched.
type DealFilter struct {
	// SearchText fuzzy-matches buyer name/email, listing company and the
	// admin comment.
	SearchText string
	BuyerType  string
	ListingID  *uuid.UUID

	Assignment AdminAssignment
	// AdminID is the assignee to match when Assignment is AdminSpecific
	// ("assigned to me" is this with the caller's own id).
	AdminID uuid.UUID

	Documents DocumentState
	// DocumentFlags are the configured flag names Documents is judged
	// against.
	DocumentFlags []string

	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	DecisionFrom *time.Time
	DecisionTo   *time.Time
}

func (f DealFilter) IsZero() bool {
	return f.SearchText == "" &&
		f.BuyerType == "" &&
		f.ListingID == nil &&
		f.Assignment == AdminAny &&
		f.Documents == DocumentsAny &&
		f.CreatedFrom == nil && f.CreatedTo == nil &&
		f.DecisionFrom == nil && f.DecisionTo == nil
}

// Apply selects the deals matching every set predicate. An empty filter is
// the identity.
func (f DealFilter) Apply(deals []*Deal) []*Deal {
	if f.IsZero() {
		return deals
	}
	out := make([]*Deal, 0, len(deals))
	for _, d := range deals {
		if f.Matches(d) {
			out = append(out, d)
		}
	}
	return out
}

func (f DealFilter) Matches(d *Deal) bool {
	return f.matchesSearch(d) &&
		f.matchesBuyerType(d) &&
		f.matchesListing(d) &&
		f.matchesAssignment(d) &&
		f.matchesDocuments(d) &&
		inRange(&d.Request.CreatedAt, f.CreatedFrom, f.CreatedTo) &&
		inRange(d.Request.DecisionAt, f.DecisionFrom, f.DecisionTo)
}

func (f DealFilter) matchesSearch(d *Deal) bool {
	if f.SearchText == "" {
		return true
	}
	haystacks := []string{d.Request.AdminComment}
	if d.Buyer != nil {
		haystacks = append(haystacks, d.Buyer.FullName(), d.Buyer.Email)
	}
	if d.Listing != nil {
		haystacks = append(haystacks, d.Listing.CompanyName)
	}
	for _, h := range haystacks {
		if h != "" && fuzzy.MatchNormalizedFold(f.SearchText, h) {
			return true
		}
	}
	return false
}

func (f DealFilter) matchesBuyerType(d *Deal) bool {
	if f.BuyerType == "" {
		return true
	}
	return d.Buyer != nil && d.Buyer.BuyerType == f.BuyerType
}

func (f DealFilter) matchesListing(d *Deal) bool {
	if f.ListingID == nil {
		return true
	}
	return d.Request.ListingID == *f.ListingID
}

func (f DealFilter) matchesAssignment(d *Deal) bool {
	switch f.Assignment {
	case AdminUnassigned:
		return d.Request.FollowUpBy == nil
	case AdminSpecific:
		return d.Request.FollowUpBy != nil && *d.Request.FollowUpBy == f.AdminID
	}
	return true
}

func (f DealFilter) matchesDocuments(d *Deal) bool {
	switch f.Documents {
	case DocumentsComplete:
		return d.Request.DocumentsComplete(f.DocumentFlags)
	case DocumentsIncomplete:
		return !d.Request.DocumentsComplete(f.DocumentFlags)
	}
	return true
}

// MatchParams applies repository find parameters to an already assembled
// collection, for read paths served from the cached full list. It always
// returns a fresh slice so callers may reorder the result without disturbing
// the cached one.
func MatchParams(deals []*Deal, params *request.FindParams) []*Deal {
	out := make([]*Deal, 0, len(deals))
	for _, d := range deals {
		if matchesParams(d.Request, params) {
			out = append(out, d)
		}
	}
	return out
}

func matchesParams(r *request.ConnectionRequest, params *request.FindParams) bool {
	if params == nil {
		return true
	}
	if len(params.Statuses) > 0 && !slices.Contains(params.Statuses, r.Status) {
		return false
	}
	if len(params.StageIDs) > 0 && (r.StageID == nil || !slices.Contains(params.StageIDs, *r.StageID)) {
		return false
	}
	if len(params.ListingIDs) > 0 && !slices.Contains(params.ListingIDs, r.ListingID) {
		return false
	}
	return true
}

// inRange checks a nullable timestamp against an optional [from, to]
// interval, inclusive on both ends. A nil timestamp only matches when no
// bound is set.
func inRange(t *time.Time, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if t == nil {
		return false
	}
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

// SortDeals orders deals in place by the given key with created-at
// descending, then id, as the stable tie-breakers. The comparator is a total
// order, so equal inputs always produce the same sequence.
func SortDeals(deals []*Deal, by request.SortBy, ascending bool) {
	less := dealLess(by)
	sort.Slice(deals, func(i, j int) bool {
		a, b := deals[i], deals[j]
		switch cmp := less(a, b); {
		case cmp < 0:
			return ascending
		case cmp > 0:
			return !ascending
		}
		ra, rb := a.Request, b.Request
		if !ra.CreatedAt.Equal(rb.CreatedAt) {
			return ra.CreatedAt.After(rb.CreatedAt)
		}
		return ra.ID.String() < rb.ID.String()
	})
}

func dealLess(by request.SortBy) func(a, b *Deal) int {
	switch by {
	case request.SortByPriority:
		return func(a, b *Deal) int {
			switch {
			case a.Request.PriorityScore < b.Request.PriorityScore:
				return -1
			case a.Request.PriorityScore > b.Request.PriorityScore:
				return 1
			}
			return 0
		}
	case request.SortByDecision:
		return func(a, b *Deal) int {
			return compareTimePtr(a.Request.DecisionAt, b.Request.DecisionAt)
		}
	default:
		return func(a, b *Deal) int {
			switch {
			case a.Request.CreatedAt.Before(b.Request.CreatedAt):
				return -1
			case a.Request.CreatedAt.After(b.Request.CreatedAt):
				return 1
			}
			return 0
		}
	}
}

// compareTimePtr orders nil (no decision yet) before any decided timestamp.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	}
	return 0
}
