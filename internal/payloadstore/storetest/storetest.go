// Package storetest provides a conformance suite shared by every payloadstore backend.
package storetest

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"wealth/internal/payloadstore"
)

// NewStore constructs a fresh, empty store for one subtest.
type NewStore func(t *testing.T) payloadstore.Store

// Run exercises the Store contract: round trip, overwrite, not-found,
// binary safety and concurrent access across keys.
func Run(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		store := newStore(t)
		key := uuid.NewString()
		want := []byte(`{"first_name":"Don","last_name":"Doe"}`)

		if err := store.Put(ctx, key, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get mismatch: got %q want %q", got, want)
		}
	})

	t.Run("MissingKeyIsNotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "abc123")
		if !payloadstore.IsNotFound(err) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		store := newStore(t)
		key := uuid.NewString()
		if err := store.Put(ctx, key, []byte("first")); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := store.Put(ctx, key, []byte("second")); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != "second" {
			t.Fatalf("expected overwritten value, got %q", got)
		}
	})

	t.Run("BinarySafe", func(t *testing.T) {
		store := newStore(t)
		key := uuid.NewString()
		want := []byte{0x00, 0xff, 0x0a, 0x00, 0x7f}
		if err := store.Put(ctx, key, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("binary mismatch: got %v want %v", got, want)
		}
	})

	t.Run("ConcurrentKeys", func(t *testing.T) {
		store := newStore(t)
		const workers = 32
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := range workers {
			wg.Go(func() {
				key := fmt.Sprintf("key-%d", i)
				value := []byte(fmt.Sprintf("value-%d", i))
				if err := store.Put(ctx, key, value); err != nil {
					errs <- err
					return
				}
				got, err := store.Get(ctx, key)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(got, value) {
					errs <- fmt.Errorf("key %s: got %q want %q", key, got, value)
				}
			})
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
	})
}
