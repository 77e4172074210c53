// Package pagination provides parallel fetching of complete filtered
// result sets from the compound API.
package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int
	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches a single page of the compound listing.
// *client.Client satisfies this interface.
type PageFetcher interface {
	Items(ctx context.Context, params compound.FilterParams) (*compound.Page, error)
}

// pageResult carries one fetched page through the worker pool.
type pageResult struct {
	pageNumber int
	items      []compound.Compound
	err        error
}

// BatchFetcher materializes an entire filtered result set by fetching all
// of its pages in parallel through a worker pool.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page matching the given filters and returns the
// compounds concatenated in page order. Page 1 is fetched first to learn
// the total page count; the remaining pages are distributed across the
// worker pool. A failed page aborts the fetch.
func (bf *BatchFetcher) FetchAll(ctx context.Context, params compound.FilterParams) ([]compound.Compound, error) {
	start := time.Now()

	firstPage, err := bf.fetcher.Items(ctx, params.WithPage(1))
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	totalPages := firstPage.TotalPages

	log.Info().
		Int("total_pages", totalPages).
		Int("total_items", firstPage.TotalItems).
		Msg("Starting parallel page fetch")

	// Single page optimization
	if totalPages <= 1 {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return firstPage.Items, nil
	}

	pages := make(map[int][]compound.Compound, totalPages)
	pages[1] = firstPage.Items

	pageQueue := make(chan int, totalPages)
	results := make(chan pageResult, totalPages)

	// Fill page queue (skip page 1, already fetched)
	go func() {
		for page := 2; page <= totalPages; page++ {
			pageQueue <- page
		}
		close(pageQueue)
	}()

	// Start worker pool
	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(workerCtx, params, pageQueue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Collect results
	var firstErr error
	for result := range results {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
				cancel()
			}
			continue
		}
		pages[result.pageNumber] = result.items
	}

	if firstErr != nil {
		return nil, fmt.Errorf("fetch pages (got %d/%d): %w", len(pages), totalPages, firstErr)
	}

	// Assemble in page order
	all := make([]compound.Compound, 0, firstPage.TotalItems)
	for page := 1; page <= totalPages; page++ {
		all = append(all, pages[page]...)
	}

	log.Info().
		Int("pages", totalPages).
		Int("items", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return all, nil
}

// worker processes pages from the queue.
func (bf *BatchFetcher) worker(ctx context.Context, params compound.FilterParams, pageQueue <-chan int, results chan<- pageResult, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.Items(pageCtx, params.WithPage(pageNum))
		cancel()

		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
			results <- pageResult{pageNumber: pageNum, err: err}
			return
		}

		results <- pageResult{pageNumber: pageNum, items: page.Items}
	}
}
