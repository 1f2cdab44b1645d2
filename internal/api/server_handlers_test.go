package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"phonescout/internal/catalog"
	"phonescout/internal/config"
	"phonescout/internal/model"
	"phonescout/internal/pkg/metrics"
	"phonescout/internal/session"
	"phonescout/internal/store"

	"github.com/gin-gonic/gin"
)

type mockCatalog struct {
	products map[string]*model.Product
}

func (m *mockCatalog) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalog) ListVariants(ctx context.Context, productID string) ([]model.Variant, error) {
	return nil, nil
}

func (m *mockCatalog) ListOffers(ctx context.Context, variantID string) ([]model.Offer, error) {
	return nil, nil
}

func (m *mockCatalog) GetReviewSummary(ctx context.Context, productID string) (*catalog.ReviewSummary, error) {
	return nil, nil
}

func (m *mockCatalog) ListCandidates(ctx context.Context, filter catalog.CandidateFilter) ([]model.Product, error) {
	out := []model.Product{}
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockCatalog) ListCategories(ctx context.Context) ([]store.CategoryInfo, error) {
	return []store.CategoryInfo{{Category: "phone", ProductCount: len(m.products)}}, nil
}

type mockSessions struct {
	addErr   error
	addCalls int
	products []string
}

func (m *mockSessions) Create(ctx context.Context) (string, error) { return "sess-1", nil }

func (m *mockSessions) Add(ctx context.Context, sessionID, productID string) error {
	m.addCalls++
	return m.addErr
}

func (m *mockSessions) Remove(ctx context.Context, sessionID, productID string) error { return nil }

func (m *mockSessions) Clear(ctx context.Context, sessionID string) error { return nil }

func (m *mockSessions) Products(ctx context.Context, sessionID string) ([]string, error) {
	if m.products == nil {
		return nil, session.ErrSessionNotFound
	}
	return m.products, nil
}

type mockFavorites struct {
	toggled bool
	entries []store.FavoriteEntry
}

func (m *mockFavorites) AddFavorite(ctx context.Context, callerHash, productID string) error {
	return nil
}

func (m *mockFavorites) RemoveFavorite(ctx context.Context, callerHash, productID string) error {
	return nil
}

func (m *mockFavorites) ToggleFavorite(ctx context.Context, callerHash, productID string) (bool, error) {
	m.toggled = !m.toggled
	return m.toggled, nil
}

func (m *mockFavorites) ListFavorites(ctx context.Context, callerHash string) ([]store.FavoriteEntry, error) {
	return m.entries, nil
}

func (m *mockFavorites) SetAlertEmail(ctx context.Context, callerHash, email string) error {
	return nil
}

func newTestServer(cat Catalog, sess Sessions, favs Favorites) *Server {
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics(1)
	return &Server{
		cfg: &config.Config{App: config.AppConfig{
			SearchLimit:    10,
			CandidateLimit: 100,
		}},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		catalog:   cat,
		sessions:  sess,
		favorites: favs,
	}
}

func demoProduct(id string) *model.Product {
	price := 500.0
	return &model.Product{
		ID:       id,
		Category: "phone",
		Brand:    "Aurora",
		Specs:    model.SpecMap{"os": model.Text("Android"), "ram_gb": model.Num(8)},
		PriceMin: &price,
	}
}

func TestHandleSearch_OK(t *testing.T) {
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{
		"p1": demoProduct("p1"),
	}}, &mockSessions{}, &mockFavorites{})

	r := gin.New()
	r.GET("/search", s.handleSearch)

	req := httptest.NewRequest(http.MethodGet, "/search?category=phone&budget_max=800", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Results []searchResultItem `json:"results"`
		Total   int                `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Results[0].Product.ID != "p1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].Score <= 0 {
		t.Fatalf("expected positive score, got %d", resp.Results[0].Score)
	}
}

func TestHandleSearch_InvalidCriteria(t *testing.T) {
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{}}, &mockSessions{}, &mockFavorites{})

	r := gin.New()
	r.GET("/search", s.handleSearch)

	for _, query := range []string{"budget_max=-100", "budget_max=abc", "min_ram=-1"} {
		req := httptest.NewRequest(http.MethodGet, "/search?"+query, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", query, w.Code)
		}
	}
}

func TestHandleSessionAdd_FullReturns409(t *testing.T) {
	sess := &mockSessions{addErr: session.ErrSessionFull}
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{
		"p1": demoProduct("p1"),
	}}, sess, &mockFavorites{})

	r := gin.New()
	r.POST("/compare/session/:id/products", s.handleSessionAdd)

	payload, _ := json.Marshal(sessionAddRequest{ProductID: "p1"})
	req := httptest.NewRequest(http.MethodPost, "/compare/session/sess-1/products", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if sess.addCalls != 1 {
		t.Fatalf("expected session add to be attempted once, got %d", sess.addCalls)
	}
}

func TestHandleSessionAdd_UnknownProductReturns404(t *testing.T) {
	sess := &mockSessions{}
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{}}, sess, &mockFavorites{})

	r := gin.New()
	r.POST("/compare/session/:id/products", s.handleSessionAdd)

	payload, _ := json.Marshal(sessionAddRequest{ProductID: "ghost"})
	req := httptest.NewRequest(http.MethodPost, "/compare/session/sess-1/products", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if sess.addCalls != 0 {
		t.Fatal("unknown product must not reach the session")
	}
}

func TestHandleGetComparison_MissingSessionReturns404(t *testing.T) {
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{}}, &mockSessions{}, &mockFavorites{})

	r := gin.New()
	r.GET("/compare/session/:id", s.handleGetComparison)

	req := httptest.NewRequest(http.MethodGet, "/compare/session/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleGetComparison_SkipsVanishedProducts(t *testing.T) {
	sess := &mockSessions{products: []string{"p1", "gone"}}
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{
		"p1": demoProduct("p1"),
	}}, sess, &mockFavorites{})

	r := gin.New()
	r.GET("/compare/session/:id", s.handleGetComparison)

	req := httptest.NewRequest(http.MethodGet, "/compare/session/sess-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var table catalog.ComparisonTable
	if err := json.Unmarshal(w.Body.Bytes(), &table); err != nil {
		t.Fatalf("decode table: %v", err)
	}
	if len(table.ProductIDs) != 1 || table.ProductIDs[0] != "p1" {
		t.Fatalf("expected only surviving product, got %v", table.ProductIDs)
	}
}

func TestHandleToggleFavorite(t *testing.T) {
	favs := &mockFavorites{}
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{}}, &mockSessions{}, favs)

	r := gin.New()
	r.POST("/favorites/toggle", func(c *gin.Context) {
		c.Set("callerHash", "hash-1")
		s.handleToggleFavorite(c)
	})

	payload, _ := json.Marshal(favoriteRequest{ProductID: "p1"})

	for i, want := range []bool{true, false} {
		req := httptest.NewRequest(http.MethodPost, "/favorites/toggle", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("toggle %d: expected 200, got %d", i, w.Code)
		}
		var resp struct {
			Favorited bool `json:"favorited"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Favorited != want {
			t.Fatalf("toggle %d: favorited=%v, want %v", i, resp.Favorited, want)
		}
	}
}

func TestHandleSetAlertEmail_RejectsMalformed(t *testing.T) {
	s := newTestServer(&mockCatalog{products: map[string]*model.Product{}}, &mockSessions{}, &mockFavorites{})

	r := gin.New()
	r.PUT("/favorites/alert", func(c *gin.Context) {
		c.Set("callerHash", "hash-1")
		s.handleSetAlertEmail(c)
	})

	payload, _ := json.Marshal(alertEmailRequest{Email: "not-an-email"})
	req := httptest.NewRequest(http.MethodPut, "/favorites/alert", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
