// Package v1 provides the sync control and catalog read endpoints.
package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/webspark/catalog-sync/internal/api/common"
	"github.com/webspark/catalog-sync/internal/service"
	"github.com/webspark/catalog-sync/internal/validators"
)

// SyncAcceptedResponse is returned when a sync was started
type SyncAcceptedResponse struct {
	Status string `json:"status"`
}

// Routes holds the handlers of the v1 API
type Routes struct {
	service service.SyncService
}

// Router creates the v1 router
func Router(svc service.SyncService) http.Handler {
	routes := &Routes{service: svc}

	r := chi.NewRouter()
	r.Get("/status", routes.getStatus)
	r.Post("/sync", routes.triggerSync)
	r.Get("/products", routes.listProducts)
	r.Get("/products/{sku}", routes.getProduct)

	return r
}

// getStatus handles GET /v1/status
func (rr *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	s, err := rr.service.GetStatus(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load sync status", "error", err)
		common.WriteErrorResponse(w, "Failed to load sync status", http.StatusInternalServerError)
		return
	}
	common.WriteJSONResponse(w, s, http.StatusOK)
}

// triggerSync handles POST /v1/sync. The cycle runs after the response is sent.
func (rr *Routes) triggerSync(w http.ResponseWriter, r *http.Request) {
	err := rr.service.TriggerSync(r.Context())
	switch {
	case errors.Is(err, service.ErrSyncInProgress):
		common.WriteErrorResponse(w, err.Error(), http.StatusConflict)
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to start sync", "error", err)
		common.WriteErrorResponse(w, "Failed to start sync", http.StatusInternalServerError)
	default:
		common.WriteJSONResponse(w, SyncAcceptedResponse{Status: "accepted"}, http.StatusAccepted)
	}
}

// listProducts handles GET /v1/products?cursor=&limit=&search=
func (rr *Routes) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var opts []service.Option
	if cursor := query.Get("cursor"); cursor != "" {
		opts = append(opts, service.WithCursor(cursor))
	}
	if search := query.Get("search"); search != "" {
		opts = append(opts, service.WithSearch(search))
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			common.WriteErrorResponse(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		opts = append(opts, service.WithLimit(limit))
	}

	page, err := rr.service.ListProducts(r.Context(), opts...)
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to list products", "error", err)
		common.WriteErrorResponse(w, "Failed to list products", http.StatusInternalServerError)
	default:
		common.WriteJSONResponse(w, page, http.StatusOK)
	}
}

// getProduct handles GET /v1/products/{sku}
func (rr *Routes) getProduct(w http.ResponseWriter, r *http.Request) {
	sku, err := common.GetAndValidateURLParam(r, "sku", validators.ValidateSKU)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := rr.service.GetProduct(r.Context(), sku)
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case err != nil:
		slog.ErrorContext(r.Context(), "Failed to get product", "sku", sku, "error", err)
		common.WriteErrorResponse(w, "Failed to get product", http.StatusInternalServerError)
	default:
		common.WriteJSONResponse(w, entry, http.StatusOK)
	}
}
