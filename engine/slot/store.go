package slot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrNotFound         = errors.New("slot not found")
	ErrInvalidKey       = errors.New("invalid slot key")
	ErrClosed           = errors.New("store is closed")
	ErrKeysUnsupported  = errors.New("keys iteration is not supported by this backend")
	ErrWatchUnsupported = errors.New("watch is not supported by this backend")
)

const MaxKeyLength = 128

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// Store is a durable named key-value slot holding opaque bytes.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns ErrNotFound when the slot has never been written or was deleted.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set overwrites the slot value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

type EventType string

const (
	EventPut    EventType = "put"
	EventDelete EventType = "delete"
)

// Event describes a change to one slot. ETag fingerprints the stored bytes.
type Event struct {
	Type EventType `json:"type"`
	Key  string    `json:"key"`
	ETag string    `json:"etag"`
	At   time.Time `json:"at"`
}

// Watcher is implemented by backends that can stream slot changes.
// The channel closes when ctx is done or the store is closed.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// ValidateKey checks that key is non-empty, at most MaxKeyLength bytes
// and limited to [A-Za-z0-9._:-].
func ValidateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: key exceeds %d bytes", ErrInvalidKey, MaxKeyLength)
	}
	if key == "." || key == ".." || !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func checkCall(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	return ValidateKey(key)
}

const defaultWatchBuffer = 64
