// Package watcher runs the ingestion loop: poll the index page, diff against
// stored state, persist new listings and fan them out to matching users.
package watcher

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"autoads_bot/internal/diff"
	"autoads_bot/internal/fetcher"
	"autoads_bot/internal/filter"
	"autoads_bot/internal/model"
	"autoads_bot/internal/storage"
)

// Notifier delivers one listing to one user. Implementations must swallow
// delivery failures; a failed send never aborts the broadcast loop.
type Notifier interface {
	SendListing(ctx context.Context, chatID int64, l model.Listing)
}

// Options configure a Watcher.
type Options struct {
	IndexURL         string
	PollInterval     time.Duration
	TailWindow       int
	MaxListings      int
	FetchConcurrency int
}

// Watcher polls the listing index on a fixed interval. A single Watcher is
// the only writer of the listings store; overlapping polls would race on the
// anchor tail, so polls run strictly sequentially.
type Watcher struct {
	store    storage.Storage
	fetcher  *fetcher.Fetcher
	notifier Notifier
	log      *slog.Logger
	opts     Options
}

// New creates a Watcher. Zero option fields fall back to defaults.
func New(store storage.Storage, f *fetcher.Fetcher, n Notifier, log *slog.Logger, opts Options) *Watcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Minute
	}
	if opts.TailWindow <= 0 {
		opts.TailWindow = diff.DefaultTailWindow
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	return &Watcher{
		store:    store,
		fetcher:  f,
		notifier: n,
		log:      log,
		opts:     opts,
	}
}

// Run starts the poll loop, blocking until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.poll(ctx)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	fresh, err := w.PollOnce(ctx)
	if err != nil {
		w.log.Error("poll failed", "error", err)
		return
	}
	if len(fresh) > 0 {
		w.log.Info("poll finished", "new_listings", len(fresh))
	}
}

// PollOnce runs a single poll cycle and returns the newly discovered
// listings in chronological order. A fetch or page-parse failure aborts the
// cycle before any state mutation; the next tick retries.
func (w *Watcher) PollOnce(ctx context.Context) ([]model.Listing, error) {
	snapshot, err := w.fetcher.FetchIndex(ctx, w.opts.IndexURL)
	if err != nil {
		return nil, err
	}

	tail, err := w.store.LastLinks(ctx, w.opts.TailWindow)
	if err != nil {
		return nil, err
	}

	fresh := diff.Compute(snapshot, tail)
	if len(fresh) == 0 {
		return nil, nil
	}

	w.enrich(ctx, fresh)

	// Persist before notifying so a crashed broadcast produces duplicates
	// on the remote side, never a half-committed store.
	for i := range fresh {
		if err := w.store.UpsertListing(ctx, &fresh[i]); err != nil {
			return nil, err
		}
	}
	w.evict(ctx)

	w.broadcast(ctx, fresh)
	return fresh, nil
}

// enrich replaces index-page rows with their detail-page records, fetched
// concurrently with a bounded fan-out. A failed detail fetch keeps the
// index-page data for that row only.
func (w *Watcher) enrich(ctx context.Context, listings []model.Listing) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.FetchConcurrency)

	for i := range listings {
		i := i
		g.Go(func() error {
			detail, err := w.fetcher.FetchDetail(gctx, listings[i].Link)
			if err != nil {
				w.log.Warn("detail fetch failed", "link", listings[i].Link, "error", err)
				return nil
			}
			merge(&listings[i], detail)
			return nil
		})
	}
	_ = g.Wait()
}

// merge overlays detail-page fields onto an index row, keeping index values
// the detail page does not carry.
func merge(row *model.Listing, detail *model.Listing) {
	date := row.Date
	if detail.Price == "" {
		detail.Price = row.Price
	}
	if detail.Image == model.NoImage && row.Image != "" {
		detail.Image = row.Image
	}
	if detail.Year == "" {
		detail.Year = row.Year
	}
	*row = *detail
	row.Date = date
}

func (w *Watcher) evict(ctx context.Context) {
	if w.opts.MaxListings <= 0 {
		return
	}
	count, err := w.store.CountListings(ctx)
	if err != nil {
		w.log.Error("count listings", "error", err)
		return
	}
	if count <= w.opts.MaxListings {
		return
	}
	if err := w.store.EvictListings(ctx, w.opts.MaxListings); err != nil {
		w.log.Error("evict listings", "error", err)
	}
}

// broadcast fans every new listing out to each active user whose filters
// match. Delivery is at-most-once per (listing, user) pair; failures are the
// notifier's problem and never stop the loop.
func (w *Watcher) broadcast(ctx context.Context, listings []model.Listing) {
	users, err := w.store.ListActiveUsers(ctx)
	if err != nil {
		w.log.Error("list active users", "error", err)
		return
	}

	for _, l := range listings {
		for _, u := range users {
			if ctx.Err() != nil {
				return
			}
			if !filter.Matches(l, u.Filters) {
				continue
			}
			w.notifier.SendListing(ctx, u.UserID, l)

			// Rate limit: ~20 messages/sec max for Telegram
			time.Sleep(50 * time.Millisecond)
		}
	}
}
