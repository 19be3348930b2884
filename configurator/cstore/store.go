// Package cstore implements the coordination store used by the configurator
// instances of one deployment to elect a bootstrap leader, to broadcast the
// end of the bootstrap and to serialize replica set mutations.
package cstore

import (
	"context"
	"errors"
	"time"
)

const (
	lockPrefix        = "locks/"
	lockObtainTimeout = 5 * time.Second
)

var (
	// ErrLockTimeout is the error returned when a lock could not be obtained in time
	ErrLockTimeout = errors.New("could not obtain lock: another configurator may be reconfiguring")

	errStoreClosed = errors.New("store is closed")
)

// Store is a strongly consistent key space with atomic create and change
// notification. Keys are created once and never updated.
type Store interface {
	// Exists returns true if key exists
	Exists(ctx context.Context, key string) (bool, error)
	// Value returns the value of key and whether key exists
	Value(ctx context.Context, key string) (string, bool, error)
	// CreateIfAbsent atomically creates key with value. It returns false,
	// without error, if key already exists.
	CreateIfAbsent(ctx context.Context, key, value string) (bool, error)
	// DeleteTree atomically deletes children and then base, if base exists.
	// It returns whether base existed.
	DeleteTree(ctx context.Context, base string, children ...string) (bool, error)
	// WatchCreate returns a channel receiving exactly one value once key
	// exists: nil when it was (or already is) created, an error when the
	// watch failed. The channel is closed afterwards. Cancelling ctx
	// closes the channel without a value.
	WatchCreate(ctx context.Context, key string) (<-chan error, error)
	// NewLocker returns a cross-process lock on key
	NewLocker(key string) Locker
	// Close releases the store's resources
	Close() error
}

// Locker is a mutual exclusion lock shared by all configurator instances
type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}
