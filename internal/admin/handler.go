// Package admin serves the catalog editor API, the catalog view and the manual flow trigger.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tiendabot/pedidos/internal/bot"
	"github.com/tiendabot/pedidos/internal/catalog"
	"github.com/tiendabot/pedidos/internal/events"
	"github.com/tiendabot/pedidos/internal/metrics"
	"github.com/tiendabot/pedidos/internal/store"
)

//go:embed catalog.html
var pageFS embed.FS

var catalogTmpl = template.Must(template.ParseFS(pageFS, "catalog.html"))

const maxBody = 1 << 20

// OrderLister is the read side of the order ledger.
type OrderLister interface {
	ListOrders() ([]store.Order, error)
}

type Handler struct {
	catalog catalog.Store
	wa      bot.Sender
	orders  OrderLister
	events  events.Publisher
	log     *zap.Logger
	now     func() time.Time

	// edits serializes read-modify-write of the catalog.
	edits sync.Mutex
}

func NewHandler(c catalog.Store, wa bot.Sender, orders OrderLister, pub events.Publisher, log *zap.Logger) *Handler {
	return &Handler{
		catalog: c,
		wa:      wa,
		orders:  orders,
		events:  pub,
		log:     log.Named("admin"),
		now:     time.Now,
	}
}

// GetCatalog handles GET /api/catalog.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Snapshot())
}

// ReplaceCatalog handles POST /api/catalog with the full catalog document.
func (h *Handler) ReplaceCatalog(w http.ResponseWriter, r *http.Request) {
	var c catalog.Catalog
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&c); err != nil {
		h.log.Warn("decoding catalog", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, result{OK: false, Error: "invalid json"})
		return
	}

	h.edits.Lock()
	err := h.replace(r.Context(), &c)
	h.edits.Unlock()

	h.writeResult(w, err)
}

type categoryRequest struct {
	Title string `json:"title"`
}

// AddCategory handles POST /api/catalog/categories.
func (h *Handler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, result{OK: false, Error: "invalid json"})
		return
	}

	h.edits.Lock()
	defer h.edits.Unlock()

	c := h.catalog.Snapshot()
	cat, err := c.AddCategory(req.Title)
	if err != nil {
		h.writeResult(w, err)
		return
	}
	created := *cat
	if err := h.replace(r.Context(), c); err != nil {
		h.writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type productRequest struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AddProduct handles POST /api/catalog/products.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, result{OK: false, Error: "invalid json"})
		return
	}

	h.edits.Lock()
	defer h.edits.Unlock()

	c := h.catalog.Snapshot()
	p, err := c.AddProduct(req.Category, req.Title, req.Description, h.now())
	if err != nil {
		h.writeResult(w, err)
		return
	}
	if err := h.replace(r.Context(), c); err != nil {
		h.writeResult(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) replace(ctx context.Context, c *catalog.Catalog) error {
	err := h.catalog.Replace(ctx, c)
	metrics.RecordCatalogWrite(err)
	if err != nil {
		h.log.Error("saving catalog", zap.Error(err))
		return err
	}

	summary := map[string]int{"categories": len(c.Categories)}
	if err := h.events.Publish(ctx, events.SubjectCatalogUpdated, summary); err != nil {
		h.log.Warn("publishing catalog update", zap.Error(err))
	}
	return nil
}

// ViewCatalog handles GET /catalog with an HTML rendering of the catalog.
func (h *Handler) ViewCatalog(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := catalogTmpl.Execute(w, h.catalog.Snapshot()); err != nil {
		h.log.Error("rendering catalog", zap.Error(err))
	}
}

type startRequest struct {
	Phone string `json:"phone"`
}

// SendStart handles POST /api/send-start. The phone comes from the query
// string or from a JSON body.
func (h *Handler) SendStart(w http.ResponseWriter, r *http.Request) {
	phone := strings.TrimSpace(r.URL.Query().Get("phone"))
	if phone == "" && r.Body != nil {
		var req startRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err == nil {
			phone = strings.TrimSpace(req.Phone)
		}
	}
	if phone == "" {
		writeError(w, http.StatusBadRequest, "phone requerido")
		return
	}

	msg, err := bot.StartMessage(phone)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.wa.Send(r.Context(), msg)
	if err != nil {
		h.log.Error("sending start prompt", zap.String("phone", phone), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "No se pudo enviar el inicio")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "data": resp})
}

// ListOrders handles GET /api/orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders()
	if err != nil {
		h.log.Error("listing orders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// writeResult maps catalog errors to the editor's {ok} responses.
func (h *Handler) writeResult(w http.ResponseWriter, err error) {
	var verr *catalog.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{OK: true})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, result{OK: false, Error: verr.Error()})
	case errors.Is(err, catalog.ErrCategoryNotFound):
		writeJSON(w, http.StatusNotFound, result{OK: false, Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, result{OK: false})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
