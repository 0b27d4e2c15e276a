// Package cache stores the last known good result of protected
// operations so a fallback chain can serve a stale-but-valid value when
// every live backend is failing.
//
// The cache is deliberately small: values are arbitrary results held in
// memory with a TTL, keyed deterministically from the operation name
// and the caller-supplied context map.
//
//	store := cache.NewMemory(cache.Config{TTL: 10 * time.Minute})
//	key := cache.Key("render.preview", opCtx)
//
//	// On success, remember the result.
//	store.Set(ctx, key, result, 0)
//
//	// In a fallback chain, serve it when everything else failed.
//	chain.Fallbacks = append(chain.Fallbacks, resilience.CachedResult(store, key))
package cache
