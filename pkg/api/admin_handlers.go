package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/auth"
	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/pagination"
)

// DefaultUsersPerPage is the admin user listing page size
const DefaultUsersPerPage = 10

// AdminHandlers handles admin-only requests. Routes must be registered
// behind RequireAdmin.
type AdminHandlers struct {
	analytics *analytics.Service
	users     *auth.UserStore
	activity  *activity.Logger
	responder
}

// NewAdminHandlers creates a new admin handlers instance
func NewAdminHandlers(service *analytics.Service, users *auth.UserStore, log *activity.Logger, rs responder) *AdminHandlers {
	return &AdminHandlers{
		analytics: service,
		users:     users,
		activity:  log,
		responder: rs,
	}
}

// RegisterRoutes registers admin routes
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/dashboard", h.getDashboard).Methods(http.MethodGet)
	router.HandleFunc("/admin/users", h.listUsers).Methods(http.MethodGet)
	router.HandleFunc("/admin/users/{id:[0-9]+}", h.updateUser).Methods(http.MethodPut)
	router.HandleFunc("/admin/analytics", h.getAnalytics).Methods(http.MethodGet)
	router.HandleFunc("/admin/logs", h.listLogs).Methods(http.MethodGet)
}

// getDashboard handles GET /admin/dashboard
func (h *AdminHandlers) getDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, dash)
}

// listUsers handles GET /admin/users
func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromRequest(r, DefaultUsersPerPage)

	users, total, err := h.users.List(r.Context(), page)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"users":      users,
		"pagination": pagination.NewEnvelope(page, total),
	})
}

// updateUser handles PUT /admin/users/{id}
func (h *AdminHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var update auth.UserUpdate
	if !httputil.ParseJSONOrError(w, r, &update) {
		return
	}

	if err := h.users.Update(r.Context(), id, update); err != nil {
		h.fail(w, r, err)
		return
	}

	h.activity.Record(r.Context(), activity.FromRequest(r), userID(r), activity.ActionUpdateUser,
		fmt.Sprintf("Updated user %d", id))

	httputil.WriteSuccess(w, map[string]string{
		"message": "User updated successfully",
	})
}

// getAnalytics handles GET /admin/analytics
func (h *AdminHandlers) getAnalytics(w http.ResponseWriter, r *http.Request) {
	period := analytics.ParsePeriod(httputil.ParseQueryString(r, "period", string(analytics.DefaultPeriod)))

	report, err := h.analytics.AdminAnalytics(r.Context(), period)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// listLogs handles GET /admin/logs
func (h *AdminHandlers) listLogs(w http.ResponseWriter, r *http.Request) {
	logs, env, err := h.activity.List(r.Context(), pagination.FromRequest(r, activity.DefaultPerPage))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"logs":       logs,
		"pagination": env,
	})
}
