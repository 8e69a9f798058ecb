package http

import (
	"net/http"

	"github.com/PropertyListing/internal/domain"
	"github.com/PropertyListing/internal/infra/transformer"
	"github.com/gorilla/mux"
)

// CatalogHandler serves GET /properties and GET /properties/{id} from a Catalog in the
// wire format the listing gateway consumes.
type CatalogHandler struct {
	catalog         domain.Catalog
	defaultPageSize int
}

func NewCatalogHandler(catalog domain.Catalog, defaultPageSize int) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, defaultPageSize: defaultPageSize}
}

func (h *CatalogHandler) Register(r *mux.Router) {
	r.HandleFunc("/properties", h.list).Methods(http.MethodGet)
	r.HandleFunc("/properties/{id}", h.get).Methods(http.MethodGet)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	q, err := domain.ParsePageQuery(r.URL.Query(), h.defaultPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.catalog.Find(r.Context(), q)
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transformer.EncodePage(page))
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transformer.FromDomain(p))
}

// writeCatalogError differs from writeError only for storage failures, which are the
// catalog's own fault rather than an upstream one.
func writeCatalogError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
