package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/linkpulse/linkpulse/internal/errx"
	"github.com/linkpulse/linkpulse/internal/geo"
	"github.com/linkpulse/linkpulse/internal/httpx"
	"github.com/linkpulse/linkpulse/internal/metrics"
)

// HTTPCreateLinkRequest represents the JSON request body for creating a link.
type HTTPCreateLinkRequest struct {
	URL          string `json:"url"`
	Name         string `json:"name,omitempty"`
	CustomSuffix string `json:"custom_suffix,omitempty"`
}

// HTTPUpdateSuffixRequest represents the JSON request body for changing
// a link's suffix.
type HTTPUpdateSuffixRequest struct {
	CustomSuffix string `json:"custom_suffix"`
}

// HTTPClickRequest represents the JSON request body for recording a
// click. Country is resolved client-side (or by an edge worker) and
// treated as an opaque string.
type HTTPClickRequest struct {
	CustomSuffix string `json:"custom_suffix"`
	Country      string `json:"country"`
}

// LinkResponse represents the JSON shape of a link.
type LinkResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	CustomSuffix string `json:"custom_suffix"`
	OriginalURL  string `json:"original_url"`
	ShortURL     string `json:"short_url"`
	Clicks       int64  `json:"clicks"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// PaginationResponse carries page metadata alongside a listing.
type PaginationResponse struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalLinks int64 `json:"total_links"`
	TotalPages int   `json:"total_pages"`
}

// ListLinksResponse represents the JSON response for a paginated listing.
type ListLinksResponse struct {
	Items      []LinkResponse     `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

// LinkStatsResponse represents the JSON response for per-link stats.
type LinkStatsResponse struct {
	Link                 LinkResponse    `json:"link"`
	TotalVisits          int64           `json:"total_visits"`
	UniqueCountriesCount int             `json:"unique_countries_count"`
	Top5Countries        []CountryClicks `json:"top_5_countries"`
	CountryStats         []CountryStat   `json:"country_stats"`
}

// UserStatsResponse represents the JSON response for per-user stats.
type UserStatsResponse struct {
	TotalLinksCreated int64           `json:"total_links_created"`
	UniqueLinksCount  int64           `json:"unique_links_count"`
	LastFiveLinks     []LinkRef       `json:"last_five_links"`
	TopCountries      []CountryClicks `json:"top_countries"`
}

// Handler provides HTTP handlers for the link domain.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
	geo     geo.Resolver
}

// HandlerConfig holds configuration for the handler.
type HandlerConfig struct {
	Service Service
	Logger  *slog.Logger
	BaseURL string       // Base URL for constructing short URLs (e.g., "https://lnk.pl")
	Geo     geo.Resolver // Country resolution for the redirect path
}

// NewHandler creates a new Handler instance.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := cfg.Geo
	if resolver == nil {
		resolver = geo.NewHeaderResolver()
	}

	return &Handler{
		service: cfg.Service,
		logger:  logger,
		baseURL: cfg.BaseURL,
		geo:     resolver,
	}
}

// CreateLink handles POST requests to create a new short link. The
// request may be anonymous; an authenticated session attaches the link
// to its owner.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	req, err := httpx.DecodeJSON[HTTPCreateLinkRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	var ownerID *uuid.UUID
	if id, ok := httpx.GetUserID(ctx); ok {
		ownerID = &id
	}

	metrics.Shortens.Inc()

	link, err := h.service.Create(ctx, CreateLinkRequest{
		OwnerID:      ownerID,
		Name:         req.Name,
		OriginalURL:  req.URL,
		CustomSuffix: req.CustomSuffix,
	})
	if err != nil {
		h.handleError(ctx, w, err, "failed to create link")
		return
	}

	logger.InfoContext(ctx, "link created",
		"link_id", link.ID.String(),
		"suffix", link.CustomSuffix,
		"custom_suffix", req.CustomSuffix != "",
		"anonymous", ownerID == nil,
	)

	httpx.WriteJSON(w, http.StatusCreated, h.toLinkResponse(link))
}

// ListLinks handles GET requests for the caller's paginated link list.
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := httpx.GetUserID(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	q := r.URL.Query()
	page := parseIntDefault(q.Get("page"), 1)
	limit := parseIntDefault(q.Get("limit"), DefaultPageSize)

	result, err := h.service.List(ctx, ListLinksRequest{
		OwnerID:    ownerID,
		Page:       page,
		Limit:      limit,
		NameFilter: q.Get("name"),
	})
	if err != nil {
		h.handleError(ctx, w, err, "failed to list links")
		return
	}

	items := make([]LinkResponse, 0, len(result.Items))
	for _, link := range result.Items {
		items = append(items, h.toLinkResponse(link))
	}

	httpx.WriteJSON(w, http.StatusOK, ListLinksResponse{
		Items: items,
		Pagination: PaginationResponse{
			Page:       result.Page,
			Limit:      result.Limit,
			TotalLinks: result.TotalLinks,
			TotalPages: result.TotalPages,
		},
	})
}

// LinkStats handles GET requests for a single link's dashboard summary.
func (h *Handler) LinkStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := httpx.GetUserID(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	linkID, err := uuid.Parse(r.PathValue("linkID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid link id", nil)
		return
	}

	stats, err := h.service.LinkStats(ctx, linkID, ownerID)
	if err != nil {
		h.handleError(ctx, w, err, "failed to fetch link stats")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, LinkStatsResponse{
		Link:                 h.toLinkResponse(stats.Link),
		TotalVisits:          stats.TotalVisits,
		UniqueCountriesCount: stats.UniqueCountriesCount,
		Top5Countries:        stats.Top5Countries,
		CountryStats:         stats.CountryStats,
	})
}

// UpdateSuffix handles PATCH requests to change a link's suffix.
func (h *Handler) UpdateSuffix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	ownerID, ok := httpx.GetUserID(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	linkID, err := uuid.Parse(r.PathValue("linkID"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid link id", nil)
		return
	}

	req, err := httpx.DecodeJSON[HTTPUpdateSuffixRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if err := h.service.UpdateSuffix(ctx, linkID, ownerID, req.CustomSuffix); err != nil {
		h.handleError(ctx, w, err, "failed to update suffix")
		return
	}

	logger.InfoContext(ctx, "suffix updated",
		"link_id", linkID.String(),
		"suffix", req.CustomSuffix,
	)

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "custom suffix changed successfully",
	})
}

// RecordClick handles PATCH requests reporting a click event against a
// suffix. The whole counter update is transactional; failures surface to
// the caller rather than being retried here.
func (h *Handler) RecordClick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.DecodeJSON[HTTPClickRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	if err := h.service.RecordClick(ctx, req.CustomSuffix, req.Country); err != nil {
		metrics.ClicksFailed.Inc()
		h.handleError(ctx, w, err, "failed to record click")
		return
	}

	metrics.ClicksTracked.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// TopCountries handles GET requests for the caller's full per-country
// click totals.
func (h *Handler) TopCountries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := httpx.GetUserID(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	totals, err := h.service.UserTopCountries(ctx, ownerID)
	if err != nil {
		h.handleError(ctx, w, err, "failed to fetch top countries")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, totals)
}

// UserStats handles GET requests for the caller's dashboard summary.
func (h *Handler) UserStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := httpx.GetUserID(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	stats, err := h.service.UserStats(ctx, ownerID)
	if err != nil {
		h.handleError(ctx, w, err, "failed to fetch user stats")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, UserStatsResponse{
		TotalLinksCreated: stats.TotalLinksCreated,
		UniqueLinksCount:  stats.UniqueLinksCount,
		LastFiveLinks:     stats.LastFiveLinks,
		TopCountries:      stats.TopCountries,
	})
}

// PublicResolve handles GET requests resolving a suffix to its
// destination without recording a click. Consumed by clients that track
// the click themselves via RecordClick.
func (h *Handler) PublicResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	suffix := r.PathValue("suffix")

	link, err := h.service.GetBySuffix(ctx, suffix)
	if err != nil {
		h.handleError(ctx, w, err, "failed to resolve suffix")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"original_url": link.OriginalURL,
	})
}

// Redirect handles GET requests on short URLs: resolve, track, redirect.
// Tracking is best-effort on this path; a failed click transaction is
// logged and the visitor is still redirected.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(r)

	suffix := r.PathValue("suffix")
	if err := validateSuffixFormat(suffix); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_suffix", err.Error(), nil)
		return
	}

	link, err := h.service.GetBySuffix(ctx, suffix)
	if err != nil {
		h.handleResolveError(ctx, w, err, suffix)
		return
	}

	metrics.Redirects.Inc()

	country := h.geo.Country(r)
	if err := h.service.RecordClick(ctx, suffix, country); err != nil {
		metrics.ClicksFailed.Inc()
		logger.ErrorContext(ctx, "click tracking failed",
			"suffix", suffix,
			"country", country,
			"error", err.Error(),
		)
	} else {
		metrics.ClicksTracked.Inc()
	}

	logger.InfoContext(ctx, "redirecting",
		"suffix", suffix,
		"country", country,
		"user_agent", r.UserAgent(),
		"referer", r.Referer(),
	)

	http.Redirect(w, r, link.OriginalURL, http.StatusFound)
}

// handleResolveError keeps redirect failures terse: visitors get a 404
// page, everything else collapses to a generic failure.
func (h *Handler) handleResolveError(ctx context.Context, w http.ResponseWriter, err error, suffix string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"suffix", suffix,
	}

	switch kind {
	case errx.NotFound:
		h.logger.WarnContext(ctx, "suffix not found", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"short link doesn't exist", nil)

	case errx.Invalid:
		h.logger.WarnContext(ctx, "invalid suffix", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_suffix", rootMessage(err), nil)

	default:
		h.logger.ErrorContext(ctx, "unexpected error resolving link", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to resolve this link at this time", nil)
	}
}

// handleError maps domain errors onto HTTP responses. Conflicts carry
// the exact reason (suffix reserved vs in use); storage faults collapse
// to a generic message so internals never leak.
func (h *Handler) handleError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"request_id", httpx.GetRequestID(ctx),
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	switch kind {
	case errx.Invalid:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", rootMessage(err), nil)

	case errx.Conflict:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict", rootMessage(err),
			map[string]string{
				"hint": "Try a different custom suffix or let us generate one for you",
			})

	case errx.NotFound:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found", "link not found", nil)

	case errx.Unavailable:
		h.logger.ErrorContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Service is temporarily unavailable. Please try again.", nil)

	default:
		h.logger.ErrorContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Something went wrong. Please try again.", nil)
	}
}

func (h *Handler) requestLogger(r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func (h *Handler) toLinkResponse(link Link) LinkResponse {
	return LinkResponse{
		ID:           link.ID.String(),
		Name:         link.Name,
		CustomSuffix: link.CustomSuffix,
		OriginalURL:  link.OriginalURL,
		ShortURL:     fmt.Sprintf("%s/%s", h.baseURL, link.CustomSuffix),
		Clicks:       link.Clicks,
		CreatedAt:    link.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    link.UpdatedAt.Format(time.RFC3339),
	}
}

// validateSuffixFormat performs basic suffix validation for the redirect
// path. This is a lightweight check before calling the service layer.
func validateSuffixFormat(suffix string) error {
	if suffix == "" {
		return errors.New("invalid link")
	}
	if len(suffix) > MaxSuffixLength {
		return errors.New("invalid link")
	}
	return nil
}

// rootMessage walks to the innermost error so responses carry the exact
// reason without the internal operation chain.
func rootMessage(err error) string {
	for {
		var e *errx.Error
		if !errors.As(err, &e) || e.Err == nil {
			return err.Error()
		}
		err = e.Err
	}
}

func parseIntDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
