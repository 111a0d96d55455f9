package model

import (
	"errors"
	"fmt"
)

var (
	// ErrSentinel reports a missing or duplicated default/undefined record.
	ErrSentinel = errors.New("sentinel invariant violated")
	// ErrSharedRequest reports a kit request referenced by more than one item.
	ErrSharedRequest = errors.New("kit request shared between items")
	// ErrUnknownReference reports an id that does not resolve in the snapshot.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrInvalidItem reports an item with neither title nor shortname.
	ErrInvalidItem = errors.New("invalid item")
)

// InvariantError describes a sentinel violation for one entity and role.
type InvariantError struct {
	Entity string // "day", "slot", "slot_length", "room"
	Role   string // "default" or "undefined"
	Count  int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: expected exactly one %s %s, found %d", ErrSentinel, e.Role, e.Entity, e.Count)
}

func (e *InvariantError) Unwrap() error {
	return ErrSentinel
}

func unknownRef(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrUnknownReference, what, id)
}
