package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/middleware"
	"github.com/platinummonkey/stockroom/pkg/observability"
	"github.com/platinummonkey/stockroom/pkg/reports"
)

// AnalyticsHandlers handles analytics and report requests. Routes must be
// registered behind OptionalAdmin so admins receive elevated detail.
type AnalyticsHandlers struct {
	service  *analytics.Service
	reports  *reports.Generator
	activity *activity.Logger
	responder
}

// NewAnalyticsHandlers creates a new analytics handlers instance
func NewAnalyticsHandlers(service *analytics.Service, generator *reports.Generator, log *activity.Logger, rs responder) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		service:   service,
		reports:   generator,
		activity:  log,
		responder: rs,
	}
}

// RegisterRoutes registers analytics routes
func (h *AnalyticsHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/analytics/products", h.getProductAnalytics).Methods(http.MethodGet)
	router.HandleFunc("/analytics/inventory", h.getInventoryAnalytics).Methods(http.MethodGet)
	router.HandleFunc("/analytics/users", h.getUserAnalytics).Methods(http.MethodGet)
	router.HandleFunc("/analytics/reports", h.getReport).Methods(http.MethodGet)
}

func elevated(r *http.Request) bool {
	identity := middleware.GetIdentity(r)
	return identity.Authenticated() && identity.IsAdmin
}

func periodParam(r *http.Request) analytics.Period {
	return analytics.ParsePeriod(httputil.ParseQueryString(r, "period", ""))
}

// getProductAnalytics handles GET /analytics/products
func (h *AnalyticsHandlers) getProductAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ProductAnalytics(r.Context(), periodParam(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getInventoryAnalytics handles GET /analytics/inventory
func (h *AnalyticsHandlers) getInventoryAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.InventoryAnalytics(r.Context(), elevated(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getUserAnalytics handles GET /analytics/users
func (h *AnalyticsHandlers) getUserAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.UserAnalytics(r.Context(), periodParam(r), elevated(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

// getReport handles GET /analytics/reports?type=&format=
func (h *AnalyticsHandlers) getReport(w http.ResponseWriter, r *http.Request) {
	kind, err := reports.ParseKind(httputil.ParseQueryString(r, "type", ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	format, err := reports.ParseFormat(httputil.ParseQueryString(r, "format", ""))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.reports.Generate(r.Context(), kind, format)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.activity.Record(r.Context(), activity.FromRequest(r), userID(r), activity.ActionReportExport,
		fmt.Sprintf("Exported %s report as %s", kind, format))

	if format == reports.FormatCSV {
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(format)))
		w.WriteHeader(http.StatusOK)
		if err := reports.WriteCSV(w, report.Table); err != nil {
			observability.FromContext(r.Context()).WithError(err).Warn("failed to write csv report")
		}
		return
	}

	httputil.WriteSuccess(w, report)
}
