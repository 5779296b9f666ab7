package state

import stderrors "errors"

var (
	// ErrConcurrentModification is returned when a write carries a stale
	// version, meaning another writer committed since the entity was read.
	ErrConcurrentModification = stderrors.New("state: concurrent modification")
	// ErrStorageUnavailable wraps backend failures so callers can distinguish
	// infrastructure faults from domain errors.
	ErrStorageUnavailable = stderrors.New("state: storage unavailable")
)
