// Package dedup suppresses redelivered queue messages within a TTL window.
// Delivery is at-least-once, so a message processed but not deleted will
// come back; a Set remembers what has already been handled.
package dedup

import (
	"context"
	"time"
)

// Set records processed message keys.
type Set interface {
	// Seen reports whether key was marked within the TTL.
	Seen(ctx context.Context, key string) (bool, error)
	// Mark records key as processed.
	Mark(ctx context.Context, key string) error
}

// Noop is a Set that never reports duplicates.
type Noop struct{}

func (Noop) Seen(context.Context, string) (bool, error) { return false, nil }
func (Noop) Mark(context.Context, string) error         { return nil }

// DefaultTTL is how long a key is remembered when none is configured.
const DefaultTTL = 10 * time.Minute
