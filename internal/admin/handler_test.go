package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tiendabot/pedidos/internal/catalog"
	"github.com/tiendabot/pedidos/internal/store"
	"github.com/tiendabot/pedidos/internal/whatsapp"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []whatsapp.SendMessageRequest
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg whatsapp.SendMessageRequest) (*whatsapp.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if f.err != nil {
		return nil, f.err
	}
	resp := &whatsapp.SendResponse{MessagingProduct: "whatsapp"}
	return resp, nil
}

type fakeOrders struct {
	orders []store.Order
	err    error
}

func (f fakeOrders) ListOrders() ([]store.Order, error) { return f.orders, f.err }

type recordingPublisher struct {
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.subjects = append(p.subjects, subject)
	return nil
}

func (p *recordingPublisher) Close() {}

type fixture struct {
	h     *Handler
	store *catalog.FileStore
	wa    *fakeSender
	pub   *recordingPublisher
}

const seed = `{"categories":[{"title":"Pizzas","items":[{"id":"prd_1","title":"Margarita","description":"Tomate"}]}]}`

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	fs := catalog.NewFileStore(path)
	_, err := fs.Load(context.Background())
	require.NoError(t, err)

	wa := &fakeSender{}
	pub := &recordingPublisher{}
	h := NewHandler(fs, wa, fakeOrders{}, pub, zap.NewNop())
	h.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return &fixture{h: h, store: fs, wa: wa, pub: pub}
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestGetCatalog(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.h.GetCatalog(rr, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	c := decode[catalog.Catalog](t, rr)
	require.Len(t, c.Categories, 1)
	assert.Equal(t, "Margarita", c.Categories[0].Items[0].Title)
}

func TestReplaceCatalog(t *testing.T) {
	f := newFixture(t)
	body := `{"categories":[{"title":"Bebidas","items":[{"id":"prd_9","title":"Agua","description":""}]}]}`
	rr := httptest.NewRecorder()
	f.h.ReplaceCatalog(rr, httptest.NewRequest(http.MethodPost, "/api/catalog", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
	assert.Equal(t, "Bebidas", f.store.Snapshot().Categories[0].Title)
	assert.Equal(t, []string{"pedidos.catalog.updated"}, f.pub.subjects)

	onDisk, err := catalog.NewFileStore(f.store.Path()).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prd_9", onDisk.Categories[0].Items[0].ID)
}

func TestReplaceCatalogRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"categories":`, http.StatusBadRequest},
		{"duplicate ids", `{"categories":[{"title":"A","items":[{"id":"x","title":"1"}]},{"title":"B","items":[{"id":"x","title":"2"}]}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := httptest.NewRecorder()
			f.h.ReplaceCatalog(rr, httptest.NewRequest(http.MethodPost, "/api/catalog", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, rr.Code)
			assert.False(t, decode[result](t, rr).OK)
			assert.Equal(t, "Pizzas", f.store.Snapshot().Categories[0].Title, "previous catalog kept")
			assert.Empty(t, f.pub.subjects)
		})
	}
}

func TestReplaceCatalogStorageFailure(t *testing.T) {
	f := newFixture(t)
	f.h.catalog = catalog.NewFileStore(filepath.Join(t.TempDir(), "missing", "catalog.json"))

	rr := httptest.NewRecorder()
	f.h.ReplaceCatalog(rr, httptest.NewRequest(http.MethodPost, "/api/catalog", strings.NewReader(`{"categories":[]}`)))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"ok":false}`, rr.Body.String())
}

func TestAddCategory(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.h.AddCategory(rr, httptest.NewRequest(http.MethodPost, "/api/catalog/categories", strings.NewReader(`{"title":" Postres "}`)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Postres", decode[catalog.Category](t, rr).Title)

	c := f.store.Snapshot()
	require.Len(t, c.Categories, 2)
	assert.Equal(t, "Postres", c.Categories[1].Title)
	assert.Empty(t, c.Categories[1].Items)

	rr = httptest.NewRecorder()
	f.h.AddCategory(rr, httptest.NewRequest(http.MethodPost, "/api/catalog/categories", strings.NewReader(`{"title":"Postres"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddProduct(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	body := `{"category":"Pizzas","title":"Napolitana","description":"Anchoas"}`
	f.h.AddProduct(rr, httptest.NewRequest(http.MethodPost, "/api/catalog/products", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rr.Code)
	p := decode[catalog.Product](t, rr)
	assert.Equal(t, "prd_1700000000000", p.ID)

	items := f.store.Snapshot().Categories[0].Items
	require.Len(t, items, 2)
	assert.Equal(t, p, items[1])
}

func TestAddProductErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown category", `{"category":"Sushi","title":"Roll"}`, http.StatusNotFound},
		{"empty title", `{"category":"Pizzas","title":"  "}`, http.StatusBadRequest},
		{"malformed", `nope`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := httptest.NewRecorder()
			f.h.AddProduct(rr, httptest.NewRequest(http.MethodPost, "/api/catalog/products", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, rr.Code)
			assert.Len(t, f.store.Snapshot().Categories[0].Items, 1)
		})
	}
}

func TestViewCatalog(t *testing.T) {
	f := newFixture(t)
	rr := httptest.NewRecorder()
	f.h.ViewCatalog(rr, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "<h2>Pizzas</h2>")
	assert.Contains(t, rr.Body.String(), "<strong>Margarita</strong>: Tomate")
}

func TestViewCatalogEscapesTitles(t *testing.T) {
	f := newFixture(t)
	c := f.store.Snapshot()
	_, err := c.AddCategory("<script>x</script>")
	require.NoError(t, err)
	require.NoError(t, f.store.Replace(context.Background(), c))

	rr := httptest.NewRecorder()
	f.h.ViewCatalog(rr, httptest.NewRequest(http.MethodGet, "/catalog", nil))
	assert.NotContains(t, rr.Body.String(), "<script>")
}

func TestSendStart(t *testing.T) {
	t.Run("phone in query", func(t *testing.T) {
		f := newFixture(t)
		rr := httptest.NewRecorder()
		f.h.SendStart(rr, httptest.NewRequest(http.MethodPost, "/api/send-start?phone=521", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decode[map[string]any](t, rr)
		assert.Equal(t, true, resp["ok"])
		assert.NotNil(t, resp["data"])
		require.Len(t, f.wa.sent, 1)
		assert.Equal(t, "521", f.wa.sent[0].To)
		assert.Equal(t, "button", f.wa.sent[0].Kind())
	})

	t.Run("phone in body", func(t *testing.T) {
		f := newFixture(t)
		rr := httptest.NewRecorder()
		f.h.SendStart(rr, httptest.NewRequest(http.MethodPost, "/api/send-start", strings.NewReader(`{"phone":"522"}`)))

		assert.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, f.wa.sent, 1)
		assert.Equal(t, "522", f.wa.sent[0].To)
	})

	t.Run("missing phone", func(t *testing.T) {
		f := newFixture(t)
		rr := httptest.NewRecorder()
		f.h.SendStart(rr, httptest.NewRequest(http.MethodPost, "/api/send-start", nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.JSONEq(t, `{"error":"phone requerido"}`, rr.Body.String())
		assert.Empty(t, f.wa.sent)
	})

	t.Run("gateway failure", func(t *testing.T) {
		f := newFixture(t)
		f.wa.err = &whatsapp.GatewayError{Status: 401, Body: "bad token"}
		rr := httptest.NewRecorder()
		f.h.SendStart(rr, httptest.NewRequest(http.MethodPost, "/api/send-start?phone=521", nil))

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.JSONEq(t, `{"error":"No se pudo enviar el inicio"}`, rr.Body.String())
	})
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	f.h.orders = fakeOrders{orders: []store.Order{{ID: "o1", Phone: "521"}}}
	rr := httptest.NewRecorder()
	f.h.ListOrders(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	orders := decode[[]store.Order](t, rr)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)

	f.h.orders = fakeOrders{err: errors.New("disk")}
	rr = httptest.NewRecorder()
	f.h.ListOrders(rr, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
