package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/stockroom/pkg/activity"
	"github.com/platinummonkey/stockroom/pkg/analytics"
	"github.com/platinummonkey/stockroom/pkg/httputil"
	"github.com/platinummonkey/stockroom/pkg/inventory"
	"github.com/platinummonkey/stockroom/pkg/pagination"
)

// ProductHandlers handles product catalogue requests
type ProductHandlers struct {
	products *inventory.Store
	activity *activity.Logger
	events   *analytics.EventTracker
	responder
}

// NewProductHandlers creates a new product handlers instance
func NewProductHandlers(products *inventory.Store, log *activity.Logger, events *analytics.EventTracker, rs responder) *ProductHandlers {
	return &ProductHandlers{
		products:  products,
		activity:  log,
		events:    events,
		responder: rs,
	}
}

// RegisterRoutes registers product routes
func (h *ProductHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)
	router.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	router.HandleFunc("/products/{id:[0-9]+}", h.getProduct).Methods(http.MethodGet)
	router.HandleFunc("/products/{id:[0-9]+}/quantity", h.updateQuantity).Methods(http.MethodPut)
}

// listProducts handles GET /products
func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	products, env, err := h.products.List(r.Context(), inventory.ListFilter{
		Type:   httputil.ParseQueryString(r, "type", ""),
		Search: httputil.ParseQueryString(r, "search", ""),
		Page:   pagination.FromRequest(r, inventory.DefaultPerPage),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"products":   products,
		"pagination": env,
	})
}

// createProduct handles POST /products
func (h *ProductHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var req inventory.NewProduct
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	createdBy := userID(r)
	id, err := h.products.Create(r.Context(), req, createdBy)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.activity.Record(r.Context(), activity.FromRequest(r), createdBy, activity.ActionProductCreate,
		fmt.Sprintf("Created product %s (SKU: %s)", req.Name, req.SKU))
	h.events.Record(r.Context(), id, analytics.ActionAdd, createdBy)

	httputil.WriteCreated(w, map[string]interface{}{
		"message":    "Product added successfully",
		"product_id": id,
	})
}

// getProduct handles GET /products/{id}
func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.events.Record(r.Context(), id, analytics.ActionView, userID(r))

	httputil.WriteSuccess(w, product)
}

// updateQuantity handles PUT /products/{id}/quantity
func (h *ProductHandlers) updateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		Quantity json.RawMessage `json:"quantity"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	quantity, err := inventory.ParseQuantity(req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	product, err := h.products.UpdateQuantity(r.Context(), id, quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	actor := userID(r)
	h.activity.Record(r.Context(), activity.FromRequest(r), actor, activity.ActionProductUpdateQuantity,
		fmt.Sprintf("Updated quantity of product %d to %d", id, quantity))
	h.events.Record(r.Context(), id, analytics.ActionUpdate, actor)

	httputil.WriteSuccess(w, product)
}
