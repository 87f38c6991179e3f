// Package idempotency tracks Idempotency-Key values seen by the order API.
package idempotency

import (
	"net/http"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Header is the request header carrying the key
const Header = "Idempotency-Key"

// MaxKeyLength bounds accepted keys
const MaxKeyLength = 255

// Key returns the trimmed idempotency key of r, or ""
func Key(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Valid reports whether key is acceptable as an idempotency key
func Valid(key string) bool {
	return key != "" && len(key) <= MaxKeyLength
}

// Index is a probabilistic set of keys already bound to an order. A miss is
// definite, so the order store only has to be consulted on a hit.
type Index struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewIndex sizes the filter for expected keys at the false-positive rate fp
func NewIndex(expected uint, fp float64) *Index {
	return &Index{filter: bloom.NewWithEstimates(expected, fp)}
}

// Add records key
func (i *Index) Add(key string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.filter.AddString(key)
}

// MaybeSeen reports whether key may have been recorded
func (i *Index) MaybeSeen(key string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.filter.TestString(key)
}

// Stats returns figures for logging
func (i *Index) Stats() map[string]interface{} {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return map[string]interface{}{
		"approximate_keys": i.filter.ApproximatedSize(),
		"capacity_bits":    i.filter.Cap(),
		"hash_functions":   i.filter.K(),
	}
}
