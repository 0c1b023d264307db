// Package payloadstore holds offloaded workflow payloads for the claim-check codec.
//
// A Store is an opaque key to blob map. Implementations must be safe for
// concurrent use; no ordering is guaranteed between unrelated keys. Entries
// are kept until the backend's retention (TTL) removes them; a zero TTL keeps
// them forever.
//
// Implementations:
//   - MemoryStore: process-local, for tests and single-process development
//   - RedisStore: shared store used by workers, the API and the codec server
//   - PostgresStore: durable store when payloads must outlive a Redis flush
//   - Traced: OpenTelemetry decorator for any Store
package payloadstore

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("payloadstore: not found")

// Store persists raw payload bytes under caller-chosen keys.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// IsNotFound reports whether err signals a missing key.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
