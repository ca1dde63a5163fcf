package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/MrEthical07/goSession/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Handler serves the session endpoints.
type Handler struct {
	engine *goSession.Engine
	cookie goSession.CookieConfig
	logger *zap.Logger
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type healthResult struct {
	Status         string  `json:"status"`
	StoreLatencyMS float64 `json:"storeLatencyMs"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, goSession.ErrInvalidRequest)
		return
	}

	tokens, err := h.engine.Login(middleware.RequestContext(r), req.Email, req.Password)
	if err != nil {
		h.fail(w, "login", err)
		return
	}

	h.writeSession(w, tokens)
	respond.OK(w, respond.CodeLoginOK, "Login successful.", tokens.Principal)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var refreshToken string
	if c, err := r.Cookie(h.cookie.Name); err == nil {
		refreshToken = c.Value
	}

	tokens, err := h.engine.Rotate(middleware.RequestContext(r), refreshToken)
	if err != nil {
		// A rejected cookie is useless to the client; an outage leaves it in place for a retry.
		if goSession.IsAuthFailure(err) {
			clearRefreshCookie(w, h.cookie)
		}
		h.fail(w, "refresh", err)
		return
	}

	h.writeSession(w, tokens)
	respond.OK(w, respond.CodeRefreshOK, "Token refreshed.", nil)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.EndSession(middleware.RequestContext(r), middleware.BearerToken(r)); err != nil {
		h.fail(w, "logout", err)
		return
	}
	clearRefreshCookie(w, h.cookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		respond.Error(w, goSession.ErrMissingAccessToken)
		return
	}
	respond.OK(w, respond.CodeOK, "OK", res.Principal)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	latency, err := h.engine.Ping(r.Context())
	if err != nil {
		h.fail(w, "healthz", err)
		return
	}
	respond.OK(w, respond.CodeOK, "OK", healthResult{
		Status:         "ok",
		StoreLatencyMS: float64(latency.Microseconds()) / 1000,
	})
}

func (h *Handler) writeSession(w http.ResponseWriter, tokens *goSession.SessionTokens) {
	w.Header().Set("Authorization", "Bearer "+tokens.AccessToken)
	setRefreshCookie(w, h.cookie, tokens.RefreshToken, tokens.RefreshTTL)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	desc := respond.Error(w, err)
	if desc.Status >= http.StatusInternalServerError && !errors.Is(err, goSession.ErrStoreUnavailable) {
		h.logger.Error("request failed", zap.String("op", op), zap.String("code", desc.Code), zap.Error(err))
	}
}
