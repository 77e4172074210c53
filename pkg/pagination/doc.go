// Package pagination provides parallel fetching of complete filtered
// result sets from the paginated /items endpoint.
//
// The listing endpoint reports total_pages in every page envelope, so one
// request is enough to learn how much remains. This package implements a
// worker pool to fetch the remaining pages concurrently, e.g. to export a
// filtered result set or navigate it as a whole.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(apiClient, pagination.DefaultConfig())
//	all, err := fetcher.FetchAll(ctx, compound.FilterParams{Activity: "+"})
//
// The batch fetcher:
//   - Fetches page 1 to determine the total page count
//   - Spawns a worker pool (default 4 workers)
//   - Distributes the remaining pages across workers
//   - Returns the compounds concatenated in page order
//   - Aborts on the first failed page
package pagination
