package authhandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"workforce/internal/domain/audit"
	"workforce/internal/domain/auth"
	"workforce/internal/transport/http/api"
	"workforce/internal/transport/http/middleware"
	"workforce/internal/transport/http/shared"
)

type Handler struct {
	Service *auth.Service
	Audit   *audit.Service
	Limiter *middleware.RateLimiter
}

func NewHandler(service *auth.Service, auditSvc *audit.Service, limiter *middleware.RateLimiter) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Limiter: limiter}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(h.Limiter.Middleware).Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/logout", h.handleLogout)
	})
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}

	tokens, user, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		api.Fail(w, http.StatusUnauthorized, "bad_credentials", "invalid email or password", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}

	if err := h.Audit.Record(r.Context(), user.TenantID, user.ID, "auth.login", "user", user.ID, reqID, shared.ClientIP(r), nil, nil); err != nil {
		slog.Warn("audit auth.login failed", "err", err)
	}
	api.Success(w, tokens, reqID)
}

type refreshPayload struct {
	UserID       string `json:"userId" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload refreshPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}

	tokens, err := h.Service.Refresh(r.Context(), payload.UserID, payload.RefreshToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		api.Fail(w, http.StatusUnauthorized, "invalid_refresh", "refresh token is expired or revoked", reqID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "refresh_failed", "token refresh failed", reqID)
		return
	}
	api.Success(w, tokens, reqID)
}

type logoutPayload struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return
	}
	var payload logoutPayload
	if !shared.DecodeValid(w, r, &payload, reqID) {
		return
	}
	if err := h.Service.Logout(r.Context(), user.UserID, payload.RefreshToken); err != nil {
		api.Fail(w, http.StatusInternalServerError, "logout_failed", "logout failed", reqID)
		return
	}
	api.Success(w, map[string]bool{"loggedOut": true}, reqID)
}
