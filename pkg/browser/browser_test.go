package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// stubFetcher adapts a function to the Fetcher interface.
type stubFetcher struct {
	fn func(ctx context.Context, params compound.FilterParams) (*compound.Page, error)
}

func (s stubFetcher) Items(ctx context.Context, params compound.FilterParams) (*compound.Page, error) {
	return s.fn(ctx, params)
}

// pageOf builds a single-page response echoing the requested page number.
func pageOf(pageNum, totalPages int, items ...compound.Compound) *compound.Page {
	return &compound.Page{
		Items:      items,
		Page:       pageNum,
		PerPage:    50,
		TotalPages: totalPages,
		TotalItems: totalPages * len(items),
	}
}

func testCompounds() []compound.Compound {
	return []compound.Compound{
		{MolIdx: 1, Fields: map[string]any{"Compound Name": "A"}},
		{MolIdx: 2, Fields: map[string]any{"Compound Name": "B"}},
		{MolIdx: 3, Fields: map[string]any{"Compound Name": "C"}},
	}
}

// recordingFetcher remembers every request and serves a fixed dataset.
type recordingFetcher struct {
	mu         sync.Mutex
	requests   []compound.FilterParams
	totalPages int
}

func (r *recordingFetcher) Items(ctx context.Context, params compound.FilterParams) (*compound.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, params)
	return pageOf(params.Page, r.totalPages, testCompounds()...), nil
}

func (r *recordingFetcher) lastRequest() compound.FilterParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[len(r.requests)-1]
}

func TestApplyFilters_ResetsToPageOne(t *testing.T) {
	fetcher := &recordingFetcher{totalPages: 5}
	b := New(fetcher)
	ctx := context.Background()

	if err := b.ChangePage(ctx, 3); err != nil {
		t.Fatalf("ChangePage failed: %v", err)
	}
	if b.Page() != 3 {
		t.Fatalf("Page = %d, want 3", b.Page())
	}

	filters := compound.FilterParams{Activity: "+"}
	if err := b.ApplyFilters(ctx, filters); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}

	last := fetcher.lastRequest()
	if last.Page != 1 {
		t.Errorf("fetch after ApplyFilters requested page %d, want 1", last.Page)
	}
	if last.Activity != "+" {
		t.Errorf("fetch lost the new filters: activity = %q", last.Activity)
	}
	if b.Page() != 1 {
		t.Errorf("Page = %d, want 1", b.Page())
	}
	if b.Filters().Activity != "+" {
		t.Errorf("Filters not replaced: %+v", b.Filters())
	}
}

func TestChangePage_ClampedToRange(t *testing.T) {
	fetcher := &recordingFetcher{totalPages: 3}
	b := New(fetcher)
	ctx := context.Background()

	// Learn the total page count first.
	if err := b.ApplyFilters(ctx, compound.FilterParams{}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}

	tests := []struct {
		name     string
		request  int
		wantPage int
	}{
		{name: "beyond range clamps to last page", request: 4, wantPage: 3},
		{name: "far beyond range", request: 99, wantPage: 3},
		{name: "below range clamps to first page", request: 0, wantPage: 1},
		{name: "negative page", request: -5, wantPage: 1},
		{name: "in range passes through", request: 2, wantPage: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.ChangePage(ctx, tt.request); err != nil {
				t.Fatalf("ChangePage failed: %v", err)
			}
			if got := fetcher.lastRequest().Page; got != tt.wantPage {
				t.Errorf("requested page %d, want %d", got, tt.wantPage)
			}
			if b.Page() != tt.wantPage {
				t.Errorf("Page = %d, want %d", b.Page(), tt.wantPage)
			}
		})
	}
}

func TestDetailNavigation(t *testing.T) {
	fetcher := &recordingFetcher{totalPages: 1}
	b := New(fetcher)
	ctx := context.Background()

	if err := b.ApplyFilters(ctx, compound.FilterParams{}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}

	items := b.Data().Items

	// B selected: next goes to C, previous from C goes back to B.
	b.ViewDetail(items[1])
	b.NextCompound()
	if got := b.Selected(); got == nil || got.MolIdx != 3 {
		t.Fatalf("NextCompound from B selected %v, want C (mol_idx 3)", got)
	}
	b.PreviousCompound()
	if got := b.Selected(); got == nil || got.MolIdx != 2 {
		t.Fatalf("PreviousCompound from C selected %v, want B (mol_idx 2)", got)
	}
}

func TestNextCompound_NoOpAtLastIndex(t *testing.T) {
	fetcher := &recordingFetcher{totalPages: 1}
	b := New(fetcher)
	ctx := context.Background()

	if err := b.ApplyFilters(ctx, compound.FilterParams{}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}

	items := b.Data().Items
	b.ViewDetail(items[len(items)-1])

	b.NextCompound()
	if got := b.Selected(); got == nil || got.MolIdx != 3 {
		t.Errorf("NextCompound at last index selected %v, want unchanged C", got)
	}
}

func TestPreviousCompound_NoOpAtFirstIndex(t *testing.T) {
	fetcher := &recordingFetcher{totalPages: 1}
	b := New(fetcher)
	ctx := context.Background()

	if err := b.ApplyFilters(ctx, compound.FilterParams{}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}

	b.ViewDetail(b.Data().Items[0])

	b.PreviousCompound()
	if got := b.Selected(); got == nil || got.MolIdx != 1 {
		t.Errorf("PreviousCompound at first index selected %v, want unchanged A", got)
	}
}

func TestNavigation_NoSelectionOrData(t *testing.T) {
	b := New(stubFetcher{fn: func(ctx context.Context, p compound.FilterParams) (*compound.Page, error) {
		return pageOf(1, 1), nil
	}})

	// No data, no selection: all no-ops, nothing panics.
	b.NextCompound()
	b.PreviousCompound()
	b.Back()
	if b.Selected() != nil {
		t.Error("Selected should stay nil")
	}
}

func TestViewDetailAndBack(t *testing.T) {
	fetcher := &recordingFetcher{totalPages: 1}
	b := New(fetcher)
	ctx := context.Background()

	if err := b.ApplyFilters(ctx, compound.FilterParams{}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}
	requestsBefore := len(fetcher.requests)

	b.ViewDetail(b.Data().Items[0])
	if b.Selected() == nil {
		t.Fatal("Selected is nil after ViewDetail")
	}

	b.Back()
	if b.Selected() != nil {
		t.Error("Selected should be nil after Back")
	}

	// Detail selection never refetches.
	if len(fetcher.requests) != requestsBefore {
		t.Errorf("detail navigation triggered %d extra fetches", len(fetcher.requests)-requestsBefore)
	}
}

func TestFetchFailure_KeepsStaleData(t *testing.T) {
	fetchErr := errors.New("backend down")
	failing := false
	var mu sync.Mutex

	b := New(stubFetcher{fn: func(ctx context.Context, p compound.FilterParams) (*compound.Page, error) {
		mu.Lock()
		defer mu.Unlock()
		if failing {
			return nil, fetchErr
		}
		return pageOf(p.Page, 3, testCompounds()...), nil
	}})
	ctx := context.Background()

	if err := b.ApplyFilters(ctx, compound.FilterParams{}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}
	before := b.Data()

	mu.Lock()
	failing = true
	mu.Unlock()

	if err := b.ChangePage(ctx, 2); !errors.Is(err, fetchErr) {
		t.Fatalf("ChangePage error = %v, want fetch error", err)
	}

	if b.Data() != before {
		t.Error("failed fetch must leave data unchanged")
	}
	if b.Loading() {
		t.Error("Loading must be false after a failed fetch")
	}
	if !errors.Is(b.Err(), fetchErr) {
		t.Errorf("Err() = %v, want fetch error", b.Err())
	}
	if b.Page() != 1 {
		t.Errorf("Page = %d, want unchanged 1", b.Page())
	}

	// Next success clears the error.
	mu.Lock()
	failing = false
	mu.Unlock()

	if err := b.ChangePage(ctx, 2); err != nil {
		t.Fatalf("ChangePage failed: %v", err)
	}
	if b.Err() != nil {
		t.Errorf("Err() = %v, want nil after success", b.Err())
	}
	if b.Page() != 2 {
		t.Errorf("Page = %d, want 2", b.Page())
	}
}

func TestLoading_TrueWhileFetchInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	b := New(stubFetcher{fn: func(ctx context.Context, p compound.FilterParams) (*compound.Page, error) {
		close(started)
		<-release
		return pageOf(1, 1), nil
	}})

	done := make(chan error)
	go func() {
		done <- b.ApplyFilters(context.Background(), compound.FilterParams{})
	}()

	<-started
	if !b.Loading() {
		t.Error("Loading should be true while a fetch is in flight")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}
	if b.Loading() {
		t.Error("Loading should be false after the fetch settles")
	}
}

func TestStaleFetchDiscarded(t *testing.T) {
	slowStarted := make(chan struct{})
	slowRelease := make(chan struct{})

	b := New(stubFetcher{fn: func(ctx context.Context, p compound.FilterParams) (*compound.Page, error) {
		if p.Query == "slow" {
			close(slowStarted)
			<-slowRelease
			return pageOf(1, 1, compound.Compound{MolIdx: 100}), nil
		}
		return pageOf(1, 1, compound.Compound{MolIdx: 200}), nil
	}})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		b.ApplyFilters(ctx, compound.FilterParams{Query: "slow"})
		close(done)
	}()

	<-slowStarted

	// A newer fetch supersedes the in-flight one.
	if err := b.ApplyFilters(ctx, compound.FilterParams{Query: "fast"}); err != nil {
		t.Fatalf("ApplyFilters failed: %v", err)
	}

	close(slowRelease)
	<-done

	// Give the slow goroutine's (discarded) result installation a moment.
	time.Sleep(10 * time.Millisecond)

	data := b.Data()
	if data == nil || len(data.Items) != 1 || data.Items[0].MolIdx != 200 {
		t.Errorf("stale response overwrote newer state: %+v", data)
	}
	if b.Filters().Query != "fast" {
		t.Errorf("Filters.Query = %q, want fast", b.Filters().Query)
	}
}
