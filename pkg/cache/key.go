package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Key represents a unique identifier for a cached API response.
type Key struct {
	// Endpoint is the API endpoint path (e.g., "/items", "/item/42")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"page": "2", "activity": "+"})
	QueryParams url.Values
}

// String generates a deterministic cache key string.
// Format: cyto:endpoint:query1=val1:query2=val2
//
// Example:
//
//	cyto:items:activity=+:page=2:per_page=50
func (k Key) String() string {
	parts := []string{"cyto"}

	// Add endpoint (normalize path)
	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			// Multi-valued params (e.g. fields) keep their own order.
			for _, value := range k.QueryParams[key] {
				parts = append(parts, fmt.Sprintf("%s=%s", key, value))
			}
		}
	}

	return strings.Join(parts, ":")
}
