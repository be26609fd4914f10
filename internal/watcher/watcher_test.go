package watcher

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"autoads_bot/internal/fetcher"
	"autoads_bot/internal/model"
	"autoads_bot/internal/storage"
)

type sentListing struct {
	ChatID int64
	Link   string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentListing
}

func (m *mockNotifier) SendListing(_ context.Context, chatID int64, l model.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentListing{ChatID: chatID, Link: l.Link})
}

func (m *mockNotifier) getSent() []sentListing {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]sentListing, len(m.sent))
	copy(cp, m.sent)
	return cp
}

// routingTransport serves canned bodies per URL and 404s everything else.
type routingTransport struct {
	mu     sync.Mutex
	routes map[string]string
}

func (rt *routingTransport) Do(req *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	body, ok := rt.routes[req.URL.String()]
	rt.mu.Unlock()
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(bytes.NewBufferString("not found")),
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // test-only fixture loading
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

const indexURL = "https://site.example/list"

func newTestWatcher(t *testing.T, store *storage.SQLite, n Notifier, routes map[string]string) *Watcher {
	t.Helper()
	f := fetcher.New(&routingTransport{routes: routes}, "https://site.example")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, f, n, log, Options{
		IndexURL:         indexURL,
		TailWindow:       19,
		MaxListings:      100,
		FetchConcurrency: 2,
	})
}

func seedKnownListings(t *testing.T, store *storage.SQLite) {
	t.Helper()
	ctx := context.Background()
	// Oldest first, matching the chronological persist order of real polls.
	for _, link := range []string{
		"https://site.example/ro/898",
		"https://site.example/ro/899",
		"https://site.example/ro/900",
	} {
		if err := store.UpsertListing(ctx, &model.Listing{Link: link}); err != nil {
			t.Fatalf("seed %s: %v", link, err)
		}
	}
}

func TestPollOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedKnownListings(t, store)

	// user 100: brand filter, matches the BMW.
	// user 200: fuel filter, matches only via detail enrichment.
	// user 300: matching filter but paused.
	// user 400: active but no filters, must never be notified.
	for _, id := range []int64{100, 200, 300, 400} {
		if err := store.CreateUser(ctx, id); err != nil {
			t.Fatalf("create user %d: %v", id, err)
		}
	}
	if err := store.AddFilterValue(ctx, 100, model.DimBrand, "BMW"); err != nil {
		t.Fatalf("add filter: %v", err)
	}
	if err := store.AddFilterValue(ctx, 200, model.DimFuel, "Бензин"); err != nil {
		t.Fatalf("add filter: %v", err)
	}
	if err := store.AddFilterValue(ctx, 300, model.DimBrand, "BMW"); err != nil {
		t.Fatalf("add filter: %v", err)
	}
	if err := store.SetActive(ctx, 300, false); err != nil {
		t.Fatalf("pause user: %v", err)
	}

	notifier := &mockNotifier{}
	w := newTestWatcher(t, store, notifier, map[string]string{
		indexURL:                       loadFixture(t, "../../testdata/index_page.html"),
		"https://site.example/ro/1001": loadFixture(t, "../../testdata/detail_page.html"),
		// Detail pages for 1002/1003 are unavailable; their index rows
		// must survive enrichment untouched.
	})

	fresh, err := w.PollOnce(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}

	var freshLinks []string
	for _, l := range fresh {
		freshLinks = append(freshLinks, l.Link)
	}
	wantFresh := []string{
		"https://site.example/ro/1003",
		"https://site.example/ro/1002",
		"https://site.example/ro/1001",
	}
	if diff := cmp.Diff(wantFresh, freshLinks); diff != "" {
		t.Errorf("fresh listings mismatch (-want +got):\n%s", diff)
	}

	// The BMW was enriched from its detail page.
	enriched := fresh[2]
	if diff := cmp.Diff("Бензин", enriched.FuelType); diff != "" {
		t.Errorf("fuel mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("Сегодня 10:15", enriched.Date); diff != "" {
		t.Errorf("date must survive enrichment (-want +got):\n%s", diff)
	}

	// The failed detail fetch kept the index row.
	if diff := cmp.Diff("Mercedes E 220", fresh[0].Title); diff != "" {
		t.Errorf("unenriched title mismatch (-want +got):\n%s", diff)
	}

	wantSent := []sentListing{
		{ChatID: 100, Link: "https://site.example/ro/1001"},
		{ChatID: 200, Link: "https://site.example/ro/1001"},
	}
	if diff := cmp.Diff(wantSent, notifier.getSent()); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}

	count, err := store.CountListings(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(6, count); diff != "" {
		t.Errorf("stored count mismatch (-want +got):\n%s", diff)
	}

	// The promoted booster row must never be stored.
	exists, err := store.ListingExists(ctx, "https://site.example/booster/1999")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Error("promoted listing must not be persisted")
	}
}

func TestPollOnceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedKnownListings(t, store)

	notifier := &mockNotifier{}
	w := newTestWatcher(t, store, notifier, map[string]string{
		indexURL: loadFixture(t, "../../testdata/index_page.html"),
	})

	first, err := w.PollOnce(ctx)
	if err != nil {
		t.Fatalf("first poll: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 new listings, got %d", len(first))
	}

	second, err := w.PollOnce(ctx)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second poll should find nothing new, got %d", len(second))
	}
}

func TestPollOnceFirstRunStoresEverything(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	notifier := &mockNotifier{}
	w := newTestWatcher(t, store, notifier, map[string]string{
		indexURL: loadFixture(t, "../../testdata/index_page.html"),
	})

	fresh, err := w.PollOnce(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	// 8 rows on the page: one malformed, one promoted.
	if diff := cmp.Diff(6, len(fresh)); diff != "" {
		t.Errorf("fresh count mismatch (-want +got):\n%s", diff)
	}
}

func TestPollOnceAbortsOnFetchFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedKnownListings(t, store)

	notifier := &mockNotifier{}
	w := newTestWatcher(t, store, notifier, map[string]string{}) // index 404s

	if _, err := w.PollOnce(ctx); err == nil {
		t.Fatal("expected poll to fail")
	}

	// No state mutation on an aborted cycle.
	count, err := store.CountListings(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(3, count); diff != "" {
		t.Errorf("count mismatch (-want +got):\n%s", diff)
	}
	if len(notifier.getSent()) != 0 {
		t.Error("no notifications expected on an aborted cycle")
	}
}

func TestEviction(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Pre-fill beyond the cap.
	for i := 0; i < 10; i++ {
		link := string(rune('a' + i))
		if err := store.UpsertListing(ctx, &model.Listing{Link: link}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	notifier := &mockNotifier{}
	f := fetcher.New(&routingTransport{routes: map[string]string{
		indexURL: loadFixture(t, "../../testdata/index_page.html"),
	}}, "https://site.example")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := New(store, f, notifier, log, Options{
		IndexURL:    indexURL,
		TailWindow:  19,
		MaxListings: 8,
	})

	if _, err := w.PollOnce(ctx); err != nil {
		t.Fatalf("poll: %v", err)
	}

	count, err := store.CountListings(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if diff := cmp.Diff(8, count); diff != "" {
		t.Errorf("count after eviction mismatch (-want +got):\n%s", diff)
	}
}
