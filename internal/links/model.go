package links

import (
	"time"

	"github.com/google/uuid"
)

// Link is a shortened link. OwnerID is nil for anonymous links created
// without a session.
type Link struct {
	ID           uuid.UUID
	OwnerID      *uuid.UUID
	Name         string
	OriginalURL  string
	CustomSuffix string
	Clicks       int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Visit is an aggregated per-(link, country) click counter, not a
// per-click log entry. One row exists per pair; Count never goes below 1
// once the row is created.
type Visit struct {
	LinkID  uuid.UUID
	Country string
	Count   int64
}

// CountryClicks is a (country, click total) pair used in dashboards.
type CountryClicks struct {
	Country string `json:"country"`
	Clicks  int64  `json:"clicks"`
}

// CountryStat is a per-country share of a link's total visits.
// Percentage is rounded to two decimals and defined as 0.00 when the
// link has no visits.
type CountryStat struct {
	Country    string  `json:"country"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// LinkStats is the per-link dashboard summary.
type LinkStats struct {
	Link                 Link
	TotalVisits          int64
	UniqueCountriesCount int
	Top5Countries        []CountryClicks
	CountryStats         []CountryStat
}

// LinkRef is the minimal link shape shown in recent-links widgets.
type LinkRef struct {
	CustomSuffix string `json:"custom_suffix"`
	OriginalURL  string `json:"original_url"`
}

// UserStats is the per-user dashboard summary.
type UserStats struct {
	TotalLinksCreated int64
	UniqueLinksCount  int64
	LastFiveLinks     []LinkRef
	TopCountries      []CountryClicks
}

// Page is one page of a user's links plus pagination metadata.
type Page struct {
	Items      []Link
	Page       int
	Limit      int
	TotalLinks int64
	TotalPages int
}
