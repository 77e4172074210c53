// Package cache provides compound API response caching with Redis backend.
//
// The cache manager implements HTTP-aware caching with the following features:
//
// - TTL from the response expires header with a short default fallback
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Whole-cache invalidation for dataset re-imports
// - Prometheus metrics for observability
// - Deterministic cache key generation from endpoint + query params
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.Key{
//		Endpoint:    "/items",
//		QueryParams: url.Values{"page": []string{"1"}, "per_page": []string{"50"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the API
//	}
//
// # HTTP Response Caching
//
//	// Convert HTTP response to cache entry
//	entry, err := cache.ResponseToEntry(resp)
//	if err != nil {
//		return err
//	}
//
//	// Store in cache
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	// Check if we should make a conditional request
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// Make request - backend returns 304 if not modified
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - compound_api_cache_hits_total{layer="redis"} - Cache hits
//   - compound_api_cache_misses_total - Cache misses
//   - compound_api_cache_size_bytes{layer="redis"} - Bytes written
//   - compound_api_304_responses_total - Conditional request successes
//   - compound_api_conditional_requests_total - Conditional requests sent
//   - compound_api_cache_errors_total{operation} - Cache operation errors
package cache
