package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed store usage: unknown entities, nil
	// components, empty queries. It is a programmer error.
	ErrValidation = errors.New("ecs: validation error")

	// ErrReentrant is returned when a listener mutates the component slot it
	// is being notified about.
	ErrReentrant = fmt.Errorf("%w: reentrant mutation", ErrValidation)
)

// invalid fails fast in debug mode and otherwise hands the error back so the
// caller can treat the operation as a no-op.
func (w *World) invalid(err error) error {
	if w.debug {
		panic(err)
	}
	return err
}
