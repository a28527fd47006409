package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreCorrupt means the store file could not be opened or read as a
	// wishwell store. The process must not continue.
	ErrStoreCorrupt = errors.New("store is corrupt or unreadable")
	// ErrVersionMismatch is matched by *VersionMismatchError.
	ErrVersionMismatch = errors.New("unknown database version")
	// ErrUnknownOwner means no wishes are stored for the uid.
	ErrUnknownOwner = errors.New("no data for uid")
	// ErrNoHistory means the owner has no wishes in the requested banner.
	ErrNoHistory = errors.New("no wish history")
)

// VersionMismatchError reports a store written by an incompatible version.
type VersionMismatchError struct {
	Found    int
	Expected int
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("unknown database version %d (expected %d), refusing to continue to avoid data corruption", e.Found, e.Expected)
}

// Is lets errors.Is match ErrVersionMismatch.
func (e *VersionMismatchError) Is(target error) bool {
	return target == ErrVersionMismatch
}

// Fatal reports whether err means the store must not be used.
func Fatal(err error) bool {
	return errors.Is(err, ErrStoreCorrupt) || errors.Is(err, ErrVersionMismatch)
}
