package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/apperr"
	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/observability"
)

// AuthHandlers handles registration and login
type AuthHandlers struct {
	accounts *auth.Service
	activity *activity.Logger
	metrics  *observability.Metrics
	responder
}

// NewAuthHandlers creates a new auth handlers instance. metrics may be nil.
func NewAuthHandlers(accounts *auth.Service, log *activity.Logger, metrics *observability.Metrics, rs responder) *AuthHandlers {
	return &AuthHandlers{
		accounts:  accounts,
		activity:  log,
		metrics:   metrics,
		responder: rs,
	}
}

// RegisterRoutes registers authentication routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	id, err := h.accounts.Register(r.Context(), req)
	h.metrics.ObserveAuthAttempt("register", attemptResult(err))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.activity.Record(r.Context(), activity.FromRequest(r), &id, activity.ActionUserRegister, "User registered")

	httputil.WriteCreated(w, map[string]interface{}{
		"message": "User registered successfully",
		"userId":  id,
	})
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.accounts.Login(r.Context(), req)
	h.metrics.ObserveAuthAttempt("login", attemptResult(err))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := result.User.ID
	h.activity.Record(r.Context(), activity.FromRequest(r), &id, activity.ActionUserLogin, "User logged in")

	httputil.WriteSuccess(w, result)
}

// attemptResult labels the outcome of a register or login
func attemptResult(err error) string {
	if err == nil {
		return "success"
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return "invalid_request"
	case apperr.KindUnauthorized:
		return "rejected"
	case apperr.KindConflict:
		return "conflict"
	default:
		return "error"
	}
}
