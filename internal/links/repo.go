package links

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for Link and Visit
// records. It abstracts the underlying data store and is responsible for
// creating, retrieving, and mutating links, recording clicks atomically,
// and serving the row sets the stats aggregation reads from.
type Repository interface {
	// CreateLink persists a new link. The store's unique constraint on
	// custom_suffix is the authoritative guard against duplicate
	// suffixes; a violation surfaces as a Conflict.
	CreateLink(ctx context.Context, link Link) (Link, error)

	// GetLinkBySuffix resolves a suffix without any ownership filter.
	// Used for public redirect resolution.
	GetLinkBySuffix(ctx context.Context, suffix string) (Link, error)

	// GetLinkByID fetches a link scoped to its owner. Anonymous links
	// (no owner) remain readable by any authenticated caller.
	GetLinkByID(ctx context.Context, id, ownerID uuid.UUID) (Link, error)

	// UpdateLinkSuffix changes a link's suffix. Only the owning user may
	// mutate; rows owned by someone else report NotFound.
	UpdateLinkSuffix(ctx context.Context, id, ownerID uuid.UUID, suffix string) error

	// ListLinks returns one page of the owner's links ordered by
	// creation time descending, plus the unpaginated total. nameFilter
	// is a case-insensitive substring match when non-empty.
	ListLinks(ctx context.Context, ownerID uuid.UUID, offset, limit int, nameFilter string) ([]Link, int64, error)

	// SuffixExists reports whether any link already uses the suffix.
	SuffixExists(ctx context.Context, suffix string) (bool, error)

	// RecordClick applies the click-tracking transaction: bump the
	// link's click counter, the owner's totals, and upsert the
	// (link, country) visit row, all-or-nothing.
	RecordClick(ctx context.Context, suffix, country string) error

	// VisitsByLink returns all visit rows for a link ordered by count
	// descending, country ascending.
	VisitsByLink(ctx context.Context, linkID uuid.UUID) ([]Visit, error)

	// OwnerLinkCount returns the number of links the user has created.
	OwnerLinkCount(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// OwnerDistinctURLCount returns the number of distinct destination
	// URLs among the user's links.
	OwnerDistinctURLCount(ctx context.Context, ownerID uuid.UUID) (int64, error)

	// OwnerRecentLinks returns the user's most recently created links.
	OwnerRecentLinks(ctx context.Context, ownerID uuid.UUID, limit int) ([]LinkRef, error)

	// OwnerTopVisits returns the highest-count visit rows across all of
	// the user's links.
	OwnerTopVisits(ctx context.Context, ownerID uuid.UUID, limit int) ([]Visit, error)

	// OwnerCountryTotals sums visit counts per country across all of
	// the user's links, ordered by total descending.
	OwnerCountryTotals(ctx context.Context, ownerID uuid.UUID) ([]CountryClicks, error)
}
