// Package ledger defines the ordered key-value store the privacy engine
// persists through, plus the LevelDB, PostgreSQL and in-memory backends.
// The engine depends only on this interface; the replicated storage substrate
// that serializes concurrent operations sits behind whichever backend is
// configured.
package ledger

import "strings"

// Ledger is an ordered key-value store with point lookups and prefix range
// scans. Get returns (nil, nil) for an absent key. ScanPrefix returns keys in
// ascending byte order, which every backend must honor so that replicas
// observe the same iteration order.
type Ledger interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	ScanPrefix(prefix string) Iterator
	Close() error
}

// Iterator walks a prefix range lazily. Callers must Close it; Err reports
// any failure encountered during iteration.
type Iterator interface {
	Next() bool
	Key() string
	Value() []byte
	Err() error
	Close() error
}

// compositeKeySep separates key attributes. U+0000 cannot appear in
// identifiers, so a scan over CompositeKey(objectType, attrs...) selects
// exactly the entries whose leading attributes match.
const compositeKeySep = "\x00"

// CompositeKey builds a scannable key from an object type and its attributes
func CompositeKey(objectType string, attrs ...string) string {
	var b strings.Builder
	b.WriteString(objectType)
	b.WriteString(compositeKeySep)
	for _, attr := range attrs {
		b.WriteString(attr)
		b.WriteString(compositeKeySep)
	}
	return b.String()
}

// SplitCompositeKey returns the object type and attributes of a composite key
func SplitCompositeKey(key string) (string, []string) {
	parts := strings.Split(key, compositeKeySep)
	if len(parts) < 2 {
		return key, nil
	}
	// Trailing separator yields one empty final element.
	return parts[0], parts[1 : len(parts)-1]
}

// keyUpperBound computes the smallest key greater than every key carrying the
// given prefix, or nil when no such bound exists (prefix is all 0xFF)
func keyUpperBound(prefix string) []byte {
	bound := []byte(prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] < 0xFF {
			bound[i]++
			return bound[:i+1]
		}
	}
	return nil
}
