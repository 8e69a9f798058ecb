package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/PropertyListing/internal/app"
	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/viewport"
	"github.com/gorilla/mux"
)

// waitTimeout bounds how long a request blocks on an in-flight page.
const waitTimeout = 15 * time.Second

// Sessions is the listing registry the handlers operate on.
type Sessions interface {
	Create(q domain.Query, pageSize int) (*app.Listing, error)
	Get(id string) (*app.Listing, error)
	Delete(id string) bool
}

// DetailGetter returns a single property with owner and sale history.
type DetailGetter interface {
	Get(ctx context.Context, id string) (*domain.PropertyDetail, error)
}

// StatsProvider exposes aggregated query analytics.
type StatsProvider interface {
	Stats() app.QueryStats
}

// Handler serves the listing API consumed by renderers.
type Handler struct {
	sessions Sessions
	details  DetailGetter
	stats    StatsProvider
}

// NewHandler builds the handler. stats may be nil when analytics are disabled.
func NewHandler(sessions Sessions, details DetailGetter, stats StatsProvider) *Handler {
	return &Handler{sessions: sessions, details: details, stats: stats}
}

func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/listings", h.createListing).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}", h.getListing).Methods(http.MethodGet)
	api.HandleFunc("/listings/{id}", h.deleteListing).Methods(http.MethodDelete)
	api.HandleFunc("/listings/{id}/more", h.loadMore).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/refresh", h.refresh).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/filters", h.setFilters).Methods(http.MethodPatch)
	api.HandleFunc("/listings/{id}/filters", h.resetFilters).Methods(http.MethodDelete)
	api.HandleFunc("/listings/{id}/sort", h.setSort).Methods(http.MethodPut)
	api.HandleFunc("/listings/{id}/sort/{key}/toggle", h.toggleSort).Methods(http.MethodPost)
	api.HandleFunc("/listings/{id}/viewport", h.observeViewport).Methods(http.MethodPost)

	api.HandleFunc("/properties/{id}", h.getProperty).Methods(http.MethodGet)
	api.HandleFunc("/analytics/queries", h.queryStats).Methods(http.MethodGet)
}

type createListingRequest struct {
	domain.Query
	PageSize int `json:"pageSize"`
}

type createListingResponse struct {
	ID   string   `json:"id"`
	View app.View `json:"view"`
}

type changeResponse struct {
	Changed bool     `json:"changed"`
	View    app.View `json:"view"`
}

type toggleResponse struct {
	SortDir domain.SortDir `json:"sortDir"`
	View    app.View       `json:"view"`
}

type setSortRequest struct {
	SortBy  domain.SortBy   `json:"sortBy"`
	SortDir *domain.SortDir `json:"sortDir"`
}

type viewportRequest struct {
	Marker      *viewport.Rect `json:"marker"`
	Viewport    viewport.Rect  `json:"viewport"`
	ThresholdPx *float64       `json:"thresholdPx"`
}

type viewportResponse struct {
	Triggered bool     `json:"triggered"`
	View      app.View `json:"view"`
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	listing, err := h.sessions.Create(req.Query, req.PageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createListingResponse{ID: listing.ID(), View: listing.View()})
}

func (h *Handler) listing(w http.ResponseWriter, r *http.Request) (*app.Listing, bool) {
	listing, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return listing, true
}

// settle blocks until the listing has no fetch in flight, the request ends or waitTimeout passes.
// A timeout still returns the current view, with Loading set.
func settle(r *http.Request, listing *app.Listing) app.View {
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
	defer cancel()
	_ = listing.Wait(ctx)
	return listing.View()
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		writeJSON(w, http.StatusOK, settle(r, listing))
		return
	}
	writeJSON(w, http.StatusOK, listing.View())
}

func (h *Handler) deleteListing(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(mux.Vars(r)["id"]) {
		writeError(w, domain.ErrListingNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadMore(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	listing.LoadMore()
	writeJSON(w, http.StatusOK, settle(r, listing))
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	listing.Refresh()
	writeJSON(w, http.StatusOK, settle(r, listing))
}

func (h *Handler) setFilters(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	var patch app.FilterPatch
	if err := decodeBody(r, &patch); err != nil {
		badRequest(w, err)
		return
	}
	changed := listing.SetFilters(patch)
	writeJSON(w, http.StatusOK, changeResponse{Changed: changed, View: listing.View()})
}

func (h *Handler) resetFilters(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	changed := listing.ResetFilters()
	writeJSON(w, http.StatusOK, changeResponse{Changed: changed, View: listing.View()})
}

func (h *Handler) setSort(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	var req setSortRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}
	changed, err := listing.SetSort(req.SortBy, req.SortDir)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse{Changed: changed, View: listing.View()})
}

func (h *Handler) toggleSort(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	dir, err := listing.ToggleSort(domain.SortBy(mux.Vars(r)["key"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toggleResponse{SortDir: dir, View: listing.View()})
}

func (h *Handler) observeViewport(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.listing(w, r)
	if !ok {
		return
	}
	var req viewportRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, err)
		return
	}

	if req.ThresholdPx != nil && (*req.ThresholdPx < 0 || math.IsNaN(*req.ThresholdPx)) {
		badRequest(w, errors.New("thresholdPx must be non-negative"))
		return
	}

	var triggered bool
	if req.ThresholdPx != nil {
		triggered = listing.ObserveWithin(req.Marker, req.Viewport, *req.ThresholdPx)
	} else {
		triggered = listing.Observe(req.Marker, req.Viewport)
	}
	writeJSON(w, http.StatusOK, viewportResponse{Triggered: triggered, View: listing.View()})
}

func (h *Handler) getProperty(w http.ResponseWriter, r *http.Request) {
	detail, err := h.details.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) queryStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "query analytics are disabled"})
		return
	}
	writeJSON(w, http.StatusOK, h.stats.Stats())
}
