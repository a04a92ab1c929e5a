package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linkpulse/linkpulse/internal/errx"
	"github.com/linkpulse/linkpulse/internal/httpx"
)

// HTTPRegisterRequest represents the JSON request body for registration.
type HTTPRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HTTPLoginRequest represents the JSON request body for login.
type HTTPLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse represents the JSON response for a created account.
type RegisterResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResponse carries the session token handed to the client.
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Handler provides HTTP handlers for account operations.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register handles POST requests to create a new account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.DecodeJSON[HTTPRegisterRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	user, err := h.service.Register(ctx, RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.handleError(ctx, w, err, "registration failed")
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", httpx.GetRequestID(ctx),
		"user_id", user.ID.String(),
	)

	httpx.WriteJSON(w, http.StatusCreated, RegisterResponse{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	})
}

// Login handles POST requests to exchange credentials for a session
// token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httpx.DecodeJSON[HTTPLoginRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	token, user, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.handleError(ctx, w, err, "login failed")
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		"request_id", httpx.GetRequestID(ctx),
		"user_id", user.ID.String(),
	)

	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		Email: user.Email,
		Name:  user.Name,
	})
}

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
		httpx.WriteError(w, http.StatusConflict, "conflict", rootMessage(err), nil)

	case errx.Unauthorized:
		h.logger.WarnContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", rootMessage(err), nil)

	default:
		h.logger.ErrorContext(ctx, msg, logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Something went wrong. Please try again.", nil)
	}
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
