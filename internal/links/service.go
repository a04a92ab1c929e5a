package links

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse/internal/errx"
)

const (
	MinSuffixLength = 3
	MaxSuffixLength = 64
	MaxURLLength    = 2048
	MaxNameLength   = 50

	DefaultPageSize = 10
	MaxPageSize     = 25
)

// CreateLinkRequest represents the parameters for creating a new link.
type CreateLinkRequest struct {
	OwnerID      *uuid.UUID // nil for anonymous links
	Name         string     // Optional display name
	OriginalURL  string
	CustomSuffix string // Optional: if empty, a suffix will be generated
}

// ListLinksRequest represents the parameters for a paginated listing.
type ListLinksRequest struct {
	OwnerID    uuid.UUID
	Page       int    // defaults to 1
	Limit      int    // defaults to 10, capped at 25
	NameFilter string // case-insensitive substring match on name
}

// Service defines the business logic operations for the link domain.
type Service interface {
	Create(ctx context.Context, req CreateLinkRequest) (Link, error)
	GetBySuffix(ctx context.Context, suffix string) (Link, error)
	RecordClick(ctx context.Context, suffix, country string) error
	UpdateSuffix(ctx context.Context, linkID, ownerID uuid.UUID, newSuffix string) error
	List(ctx context.Context, req ListLinksRequest) (Page, error)
	LinkStats(ctx context.Context, linkID, ownerID uuid.UUID) (LinkStats, error)
	UserStats(ctx context.Context, ownerID uuid.UUID) (UserStats, error)
	UserTopCountries(ctx context.Context, ownerID uuid.UUID) ([]CountryClicks, error)
}

// service implements the Service interface.
type service struct {
	repo      Repository
	allocator *Allocator
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	Allocator *Allocator // defaults to NewAllocator(repo, nil)
}

// NewService creates a new service instance.
func NewService(repo Repository, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = NewAllocator(repo, nil)
	}

	return &service{
		repo:      repo,
		allocator: allocator,
	}
}

// Create allocates a suffix and persists a new link. Allocation is a
// pure pre-check; the store's unique constraint stays authoritative, so a
// lost allocate/insert race still comes back as a Conflict.
func (s *service) Create(ctx context.Context, req CreateLinkRequest) (Link, error) {
	const op = "links.service.Create"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if err := validateName(req.Name); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}
	if req.CustomSuffix != "" {
		if err := validateSuffix(req.CustomSuffix); err != nil {
			return Link{}, errx.E(op, errx.Invalid, err)
		}
	}

	suffix, err := s.allocator.Allocate(ctx, req.CustomSuffix)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}

	created, err := s.repo.CreateLink(ctx, Link{
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		OriginalURL:  req.OriginalURL,
		CustomSuffix: suffix,
	})
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

func (s *service) GetBySuffix(ctx context.Context, suffix string) (Link, error) {
	const op = "links.service.GetBySuffix"

	if suffix == "" {
		return Link{}, errx.E(op, errx.Invalid, errors.New("suffix cannot be empty"))
	}

	link, err := s.repo.GetLinkBySuffix(ctx, suffix)
	if err != nil {
		return Link{}, errx.E(op, errx.KindOf(err), err)
	}
	return link, nil
}

// RecordClick records one click against the link identified by suffix.
// The repository applies all counter updates in a single transaction; a
// failure here leaves no partial writes. Callers on the redirect path may
// treat a failure as non-fatal, but it is never swallowed at this layer.
func (s *service) RecordClick(ctx context.Context, suffix, country string) error {
	const op = "links.service.RecordClick"

	if suffix == "" {
		return errx.E(op, errx.Invalid, errors.New("suffix cannot be empty"))
	}
	if country == "" {
		return errx.E(op, errx.Invalid, errors.New("country cannot be empty"))
	}

	if err := s.repo.RecordClick(ctx, suffix, country); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func (s *service) UpdateSuffix(ctx context.Context, linkID, ownerID uuid.UUID, newSuffix string) error {
	const op = "links.service.UpdateSuffix"

	if err := validateSuffix(newSuffix); err != nil {
		return errx.E(op, errx.Invalid, err)
	}

	// Same reserved+uniqueness policy as creation. The store rejects
	// duplicates again on write in case we lose the race in between.
	if _, err := s.allocator.Allocate(ctx, newSuffix); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if err := s.repo.UpdateLinkSuffix(ctx, linkID, ownerID, newSuffix); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func (s *service) List(ctx context.Context, req ListLinksRequest) (Page, error) {
	const op = "links.service.List"

	page := req.Page
	if page < 1 {
		page = 1
	}

	limit := req.Limit
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	offset := (page - 1) * limit

	items, total, err := s.repo.ListLinks(ctx, req.OwnerID, offset, limit, req.NameFilter)
	if err != nil {
		return Page{}, errx.E(op, errx.KindOf(err), err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return Page{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalLinks: total,
		TotalPages: totalPages,
	}, nil
}

func (s *service) LinkStats(ctx context.Context, linkID, ownerID uuid.UUID) (LinkStats, error) {
	const op = "links.service.LinkStats"

	link, err := s.repo.GetLinkByID(ctx, linkID, ownerID)
	if err != nil {
		return LinkStats{}, errx.E(op, errx.KindOf(err), err)
	}

	visits, err := s.repo.VisitsByLink(ctx, linkID)
	if err != nil {
		return LinkStats{}, errx.E(op, errx.KindOf(err), err)
	}

	return buildLinkStats(link, visits), nil
}

func (s *service) UserStats(ctx context.Context, ownerID uuid.UUID) (UserStats, error) {
	const op = "links.service.UserStats"

	totalLinks, err := s.repo.OwnerLinkCount(ctx, ownerID)
	if err != nil {
		return UserStats{}, errx.E(op, errx.KindOf(err), err)
	}

	uniqueLinks, err := s.repo.OwnerDistinctURLCount(ctx, ownerID)
	if err != nil {
		return UserStats{}, errx.E(op, errx.KindOf(err), err)
	}

	recent, err := s.repo.OwnerRecentLinks(ctx, ownerID, 5)
	if err != nil {
		return UserStats{}, errx.E(op, errx.KindOf(err), err)
	}

	topVisits, err := s.repo.OwnerTopVisits(ctx, ownerID, 5)
	if err != nil {
		return UserStats{}, errx.E(op, errx.KindOf(err), err)
	}
	sortVisits(topVisits)

	return UserStats{
		TotalLinksCreated: totalLinks,
		UniqueLinksCount:  uniqueLinks,
		LastFiveLinks:     recent,
		TopCountries:      toCountryClicks(topVisits),
	}, nil
}

func (s *service) UserTopCountries(ctx context.Context, ownerID uuid.UUID) ([]CountryClicks, error) {
	const op = "links.service.UserTopCountries"

	totals, err := s.repo.OwnerCountryTotals(ctx, ownerID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return totals, nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}

func validateName(name string) error {
	if len(name) > MaxNameLength {
		return errors.New("name too long (maximum 50 characters)")
	}
	return nil
}

func validateSuffix(suffix string) error {
	if suffix == "" {
		return errors.New("suffix cannot be empty")
	}
	if len(suffix) < MinSuffixLength {
		return errors.New("suffix too short (minimum 3 characters)")
	}
	if len(suffix) > MaxSuffixLength {
		return errors.New("suffix too long (maximum 64 characters)")
	}

	if strings.HasPrefix(suffix, "-") || strings.HasPrefix(suffix, "_") ||
		strings.HasSuffix(suffix, "-") || strings.HasSuffix(suffix, "_") {
		return errors.New("suffix cannot start or end with dash or underscore")
	}

	for _, char := range suffix {
		if !isValidSuffixChar(char) {
			return errors.New("suffix contains invalid characters (only alphanumeric, dash, and underscore allowed)")
		}
	}
	return nil
}

func isValidSuffixChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	default:
		return false
	}
}
