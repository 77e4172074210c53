// Package browser implements the view-state coordinator for the compound
// listing: it owns the current filter selection, page number, the most
// recently fetched page, and the compound selected for detail view.
package browser

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// Fetcher fetches one page of the compound listing. *client.Client
// satisfies this interface.
type Fetcher interface {
	Items(ctx context.Context, params compound.FilterParams) (*compound.Page, error)
}

// Browser coordinates filters, pagination, and detail selection over a
// Fetcher. All methods are safe for concurrent use. Each fetch carries a
// generation number; a response from a superseded fetch (e.g. rapid filter
// changes) is discarded so it can never overwrite newer state.
type Browser struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu         sync.Mutex
	generation uint64
	inFlight   int
	data       *compound.Page
	filters    compound.FilterParams
	page       int
	selected   *compound.Compound
	lastErr    error
}

// New creates a browser over the given fetcher. The page number defaults
// to 1 until the first response arrives.
func New(fetcher Fetcher) *Browser {
	return &Browser{
		fetcher: fetcher,
		logger:  log.With().Str("component", "browser").Logger(),
		page:    1,
	}
}

// ApplyFilters replaces the current filter selection wholesale, resets to
// page 1, and fetches. Loading reports true until the fetch settles,
// success or failure.
func (b *Browser) ApplyFilters(ctx context.Context, filters compound.FilterParams) error {
	b.mu.Lock()
	b.filters = filters
	b.mu.Unlock()

	return b.fetch(ctx, filters, 1)
}

// ChangePage fetches the given page with the current filters. The target
// page is clamped to [1, total_pages] when the total is known, so a page
// beyond range is never requested.
func (b *Browser) ChangePage(ctx context.Context, page int) error {
	b.mu.Lock()
	if page < 1 {
		page = 1
	}
	if b.data != nil && b.data.TotalPages > 0 && page > b.data.TotalPages {
		page = b.data.TotalPages
	}
	filters := b.filters
	b.mu.Unlock()

	return b.fetch(ctx, filters, page)
}

// Refresh re-fetches the current page with the current filters.
func (b *Browser) Refresh(ctx context.Context) error {
	b.mu.Lock()
	filters := b.filters
	page := b.page
	b.mu.Unlock()

	return b.fetch(ctx, filters, page)
}

// fetch performs a page fetch and installs the result unless a newer fetch
// was issued in the meantime.
func (b *Browser) fetch(ctx context.Context, filters compound.FilterParams, page int) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	b.inFlight++
	b.mu.Unlock()

	data, err := b.fetcher.Items(ctx, filters.WithPage(page))

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--

	if gen != b.generation {
		// A newer fetch was issued while this one was in flight.
		b.logger.Debug().
			Uint64("generation", gen).
			Uint64("latest", b.generation).
			Msg("Discarding stale fetch result")
		return err
	}

	if err != nil {
		// Keep the previous page on screen (stale but valid).
		b.logger.Error().Err(err).Int("page", page).Msg("Page fetch failed")
		b.lastErr = err
		return err
	}

	b.data = data
	b.page = data.Page
	b.lastErr = nil
	return nil
}

// ViewDetail selects a compound for detail view. No fetch is triggered;
// the record was already delivered with the listing.
func (b *Browser) ViewDetail(c compound.Compound) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = &c
}

// Back clears the detail selection, returning to list view.
func (b *Browser) Back() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = nil
}

// NextCompound moves the detail selection to the next entry of the current
// page. At the last entry the call is a no-op (clamped, no wraparound).
func (b *Browser) NextCompound() {
	b.step(1)
}

// PreviousCompound moves the detail selection to the previous entry of the
// current page. At the first entry the call is a no-op.
func (b *Browser) PreviousCompound() {
	b.step(-1)
}

// step moves the selection by delta within the current page's items,
// locating the selected compound by mol_idx.
func (b *Browser) step(delta int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.selected == nil || b.data == nil {
		return
	}

	idx := -1
	for i := range b.data.Items {
		if b.data.Items[i].MolIdx == b.selected.MolIdx {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	target := idx + delta
	if target < 0 || target >= len(b.data.Items) {
		return
	}

	b.selected = &b.data.Items[target]
}

// Data returns the most recently fetched page, or nil before the first
// successful fetch.
func (b *Browser) Data() *compound.Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data
}

// Loading reports whether a fetch is in flight.
func (b *Browser) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight > 0
}

// Selected returns the compound selected for detail view, or nil in list
// view.
func (b *Browser) Selected() *compound.Compound {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// Filters returns the current filter selection.
func (b *Browser) Filters() compound.FilterParams {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filters
}

// Page returns the displayed page number: the page of the last successful
// response, or 1 before any response arrives.
func (b *Browser) Page() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// Err returns the error of the last failed fetch, cleared by the next
// successful one.
func (b *Browser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}
