package services

import (
	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/pkg/viewcache"
)

// Cached view keys. Every cached projection of the pipeline lives under one
// of these; the mutation fan-out table below is the single source of truth
// for which views a mutation invalidates.
const (
	ViewRequestsList  viewcache.Key = "crm:requests:list"
	ViewPipelineBoard viewcache.Key = "crm:pipeline:board"
)

func ViewRequestDetail(id uuid.UUID) viewcache.Key {
	return viewcache.Key("crm:requests:detail:" + id.String())
}

func ViewListingRequests(listingID uuid.UUID) viewcache.Key {
	return viewcache.Key("crm:listings:requests:" + listingID.String())
}

// MutationKind names one mutation the engine performs against a request.
type MutationKind string

const (
	MutationTransition MutationKind = "transition"
	MutationStageMove  MutationKind = "stage_move"
	MutationComment    MutationKind = "comment"
)

// TargetViews lists the views that hold the mutated record itself. These are
// snapshotted and speculatively patched; they must all be patchable with the
// same record-level patch.
func TargetViews(id uuid.UUID) []viewcache.Key {
	return []viewcache.Key{ViewRequestsList, ViewRequestDetail(id)}
}

// FanOut is the dependency table: for each mutation kind, every view that
// semantically depends on the mutated record beyond the directly patched
// ones. Kept as data so the mapping is testable for completeness.
func FanOut(kind MutationKind, listingID uuid.UUID) []viewcache.Key {
	switch kind {
	case MutationTransition:
		return []viewcache.Key{
			ViewPipelineBoard,
			ViewListingRequests(listingID),
		}
	case MutationStageMove:
		return []viewcache.Key{
			ViewPipelineBoard,
			ViewListingRequests(listingID),
		}
	case MutationComment:
		// Comments render only on the directly patched views.
		return nil
	}
	return nil
}
