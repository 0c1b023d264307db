package claimcheck

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedVersion is returned when a claim-checked envelope carries a codec
	// version this build cannot read.
	ErrUnsupportedVersion = errors.New("claimcheck: unsupported codec version")
	// ErrEmptyKey is returned when a claim-checked envelope carries no reference key.
	ErrEmptyKey = errors.New("claimcheck: empty reference key")
)

// StoreWriteError reports a failed attempt to offload a payload.
type StoreWriteError struct {
	Key string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("claimcheck: store payload %s: %v", e.Key, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// DecodeError reports a claim-checked envelope that could not be rehydrated.
// Err matches payloadstore.ErrNotFound when the key is absent from the store.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("claimcheck: decode payload: %v", e.Err)
	}
	return fmt.Sprintf("claimcheck: decode payload %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
