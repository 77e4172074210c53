package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// fakeFetcher serves a fixed dataset split into pages of perPage items.
type fakeFetcher struct {
	mu       sync.Mutex
	dataset  []compound.Compound
	perPage  int
	failPage int // page number that fails, 0 for none
	requests []int
}

func (f *fakeFetcher) Items(ctx context.Context, params compound.FilterParams) (*compound.Page, error) {
	f.mu.Lock()
	f.requests = append(f.requests, params.Page)
	f.mu.Unlock()

	if f.failPage != 0 && params.Page == f.failPage {
		return nil, errors.New("page fetch exploded")
	}

	total := len(f.dataset)
	totalPages := (total + f.perPage - 1) / f.perPage
	start := (params.Page - 1) * f.perPage
	end := start + f.perPage
	if end > total {
		end = total
	}
	if start > total {
		start = total
	}

	return &compound.Page{
		Items:      f.dataset[start:end],
		Page:       params.Page,
		PerPage:    f.perPage,
		TotalPages: totalPages,
		TotalItems: total,
	}, nil
}

func dataset(n int) []compound.Compound {
	compounds := make([]compound.Compound, n)
	for i := range compounds {
		compounds[i] = compound.Compound{MolIdx: int64(i + 1)}
	}
	return compounds
}

func TestFetchAll_SinglePage(t *testing.T) {
	fetcher := &fakeFetcher{dataset: dataset(10), perPage: 50}
	bf := NewBatchFetcher(fetcher, DefaultConfig())

	all, err := bf.FetchAll(context.Background(), compound.FilterParams{})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(all) != 10 {
		t.Errorf("items = %d, want 10", len(all))
	}
	if len(fetcher.requests) != 1 {
		t.Errorf("requests = %d, want 1 (single page optimization)", len(fetcher.requests))
	}
}

func TestFetchAll_MultiPageOrder(t *testing.T) {
	fetcher := &fakeFetcher{dataset: dataset(95), perPage: 10}
	bf := NewBatchFetcher(fetcher, Config{MaxConcurrency: 4})

	all, err := bf.FetchAll(context.Background(), compound.FilterParams{})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(all) != 95 {
		t.Fatalf("items = %d, want 95", len(all))
	}

	// Concatenation must preserve page order regardless of which worker
	// fetched which page.
	for i, c := range all {
		if c.MolIdx != int64(i+1) {
			t.Fatalf("all[%d].MolIdx = %d, want %d", i, c.MolIdx, i+1)
		}
	}
}

func TestFetchAll_FirstPageError(t *testing.T) {
	fetcher := &fakeFetcher{dataset: dataset(30), perPage: 10, failPage: 1}
	bf := NewBatchFetcher(fetcher, DefaultConfig())

	if _, err := bf.FetchAll(context.Background(), compound.FilterParams{}); err == nil {
		t.Fatal("expected error when first page fails")
	}
}

func TestFetchAll_WorkerError(t *testing.T) {
	fetcher := &fakeFetcher{dataset: dataset(50), perPage: 10, failPage: 3}
	bf := NewBatchFetcher(fetcher, Config{MaxConcurrency: 2})

	if _, err := bf.FetchAll(context.Background(), compound.FilterParams{}); err == nil {
		t.Fatal("expected error when a page fetch fails")
	}
}

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher(&fakeFetcher{}, Config{})

	if bf.config.MaxConcurrency != 4 {
		t.Errorf("MaxConcurrency = %d, want default 4", bf.config.MaxConcurrency)
	}
	if bf.config.Timeout <= 0 {
		t.Errorf("Timeout = %v, want positive default", bf.config.Timeout)
	}
}
