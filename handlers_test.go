package showroom

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/eringen/showroom/catalog"
)

// newTestApp wires an App over a fresh seeded store without starting a server.
func newTestApp(t *testing.T) *App {
	t.Helper()
	a := New(SiteConfig{URL: "https://example.com"}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	store, err := catalog.OpenKV(filepath.Join(t.TempDir(), "test.db"), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	repo, err := catalog.NewRepository(store, 10<<20, a.log)
	if err != nil {
		t.Fatal(err)
	}
	a.Store = store
	a.Catalog = repo
	return a
}

func doRequest(t *testing.T, a *App, target string, handler echo.HandlerFunc, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := a.Echo.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(params[i])
		c.SetParamValues(params[i+1])
	}
	if err := handler(c); err != nil {
		a.httpErrorHandler(err, c)
	}
	return rec
}

func TestHandleListItems(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/api/items", a.handleListItems)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var items []catalog.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 seed items, got %d", len(items))
	}

	rec = doRequest(t, a, "/api/items?brand=honda", a.handleListItems)
	items = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Brand != "Honda" {
		t.Errorf("brand filter returned %+v", items)
	}

	rec = doRequest(t, a, "/api/items?sortBy=price&sortOrder=desc", a.handleListItems)
	items = nil
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatal(err)
	}
	if items[0].Price != 15900 {
		t.Errorf("expected the GS first on price desc, got %+v", items[0])
	}
}

func TestHandleGetItem(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/api/items/seed-mt07", a.handleGetItem, "id", "seed-mt07")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var it catalog.Item
	if err := json.Unmarshal(rec.Body.Bytes(), &it); err != nil {
		t.Fatal(err)
	}
	if it.Model != "MT-07" {
		t.Errorf("Model = %q", it.Model)
	}

	rec = doRequest(t, a, "/api/items/nope", a.handleGetItem, "id", "nope")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleStorageInfo(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/api/storage", a.handleStorageInfo)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info catalog.StorageInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info.CapacityBytes != 10<<20 {
		t.Errorf("CapacityBytes = %d", info.CapacityBytes)
	}
	if info.UsedBytes <= 0 {
		t.Errorf("UsedBytes = %d, expected the persisted seed to count", info.UsedBytes)
	}
}

func TestHandleRobots(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/robots.txt", a.handleRobots)
	if !strings.Contains(rec.Body.String(), "Sitemap: https://example.com/sitemap.xml") {
		t.Errorf("robots.txt missing sitemap line:\n%s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Disallow: /api/admin/") {
		t.Error("robots.txt should disallow the admin API")
	}
}

func TestHandleSitemap(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/sitemap.xml", a.handleSitemap)
	body := rec.Body.String()
	if !strings.Contains(body, "<urlset") {
		t.Fatalf("not a sitemap:\n%s", body)
	}
	if !strings.Contains(body, "https://example.com/inventory/yamaha-mt-07/seed-mt07/") {
		t.Errorf("sitemap missing item URL:\n%s", body)
	}
}

func TestHandleFeed(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/feed.xml", a.handleFeed)
	body := rec.Body.String()
	if !strings.Contains(body, "<rss") {
		t.Fatalf("not an rss feed:\n%s", body)
	}
	// Newest listing first: the seed's last item leads the feed.
	z900 := strings.Index(body, "2020 Kawasaki Z900")
	cb650r := strings.Index(body, "2023 Honda CB650R")
	if z900 < 0 || cb650r < 0 || z900 > cb650r {
		t.Errorf("feed order wrong:\n%s", body)
	}
}

func TestAdminRequiresSession(t *testing.T) {
	a := newTestApp(t)

	rec := doRequest(t, a, "/api/admin/items/seed-z900", a.handleAdminDeleteItem, "id", "seed-z900")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if _, err := a.Catalog.Item("seed-z900"); err != nil {
		t.Error("item should survive an unauthorized delete")
	}
}
