// Package persistence wraps the key/value store behind a narrow,
// typed Store interface: atomic counters, hashes, sets, batched
// pipelines, and a deposit-first/remove-second/rollback transaction
// helper.
// The core never depends on a concrete driver directly.
package persistence

import "context"

// Store is every KV operation the core and its collaborators need.
// Implementations must be safe for concurrent use; a single instance is
// shared across the whole process.
type Store interface {
	// IncrCounter atomically increments key by one and returns the new
	// value. Used for accounts:counter-style ID allocation.
	IncrCounter(ctx context.Context, key string) (int64, error)

	// HashSet writes one field of a hash key.
	HashSet(ctx context.Context, key, field string, value string) error
	// HashGet reads one field of a hash key.
	HashGet(ctx context.Context, key, field string) (string, bool, error)
	// HashGetAll reads every field of a hash key.
	HashGetAll(ctx context.Context, key string) (map[string]string, error)
	// HashDel removes one field of a hash key.
	HashDel(ctx context.Context, key, field string) error

	// Set writes a plain string key.
	Set(ctx context.Context, key, value string) error
	// Get reads a plain string key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Del removes one or more keys outright.
	Del(ctx context.Context, keys ...string) error

	// SetAdd adds members to a set key.
	SetAdd(ctx context.Context, key string, members ...string) error
	// SetRemove removes members from a set key.
	SetRemove(ctx context.Context, key string, members ...string) error
	// SetMembers returns every member of a set key.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Pipeline runs fn with a batched pipeline; ops queued via the
	// supplied Pipeliner execute as one round trip on Exec.
	Pipeline(ctx context.Context, fn func(p Pipeliner) error) error
}

// Pipeliner queues operations for a single pipelined round trip.
// Mirrors the subset of Store that makes sense batched.
type Pipeliner interface {
	HashSet(key, field, value string)
	Set(key, value string)
	Del(keys ...string)
	SetAdd(key string, members ...string)
	SetRemove(key string, members ...string)
}

// Transfer moves a value from a source mutation to a destination
// mutation using the deposit-first, remove-second, rollback-on-failure
// discipline every value transfer (commerce, bank, drop, trade)
// follows: the deposit is applied, then the removal; if the removal
// fails, the deposit is compensated before the error reaches the
// caller.
func Transfer(ctx context.Context, deposit, removeOnSuccess, compensateOnFailure func(ctx context.Context) error) error {
	if err := deposit(ctx); err != nil {
		return err
	}
	if err := removeOnSuccess(ctx); err != nil {
		if rbErr := compensateOnFailure(ctx); rbErr != nil {
			return &rollbackError{removeErr: err, rollbackErr: rbErr}
		}
		return err
	}
	return nil
}

type rollbackError struct {
	removeErr   error
	rollbackErr error
}

func (e *rollbackError) Error() string {
	return "transfer failed and rollback also failed: remove=" + e.removeErr.Error() + " rollback=" + e.rollbackErr.Error()
}

func (e *rollbackError) Unwrap() error { return e.removeErr }
