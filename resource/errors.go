// Package resource implements the canonical-form resource sets used by the
// RFC 3779 certificate extensions: bit-string addresses, IP address
// families, and AS identifier sets.
package resource

import (
	"errors"
	"fmt"
)

// Sentinel errors raised by the constructors and canonicalizers (C3-C5).
var (
	ErrInvalidInheritance = errors.New("resource: inherit mixed with explicit resources")
	ErrInvalidAsNumber    = errors.New("resource: invalid AS number")
	ErrInvalidAsRange     = errors.New("resource: invalid AS range")
	ErrInternal           = errors.New("resource: internal canonicalization error")
)

// FamilyError reports a problem with a specific address family, identified
// by its key, wrapping the underlying sentinel.
type FamilyError struct {
	AFI  uint16
	SAFI *uint8
	Err  error
}

func (e *FamilyError) Error() string {
	if e.SAFI != nil {
		return fmt.Sprintf("resource: family afi=%d safi=%d: %s", e.AFI, *e.SAFI, e.Err)
	}
	return fmt.Sprintf("resource: family afi=%d: %s", e.AFI, e.Err)
}

func (e *FamilyError) Unwrap() error { return e.Err }
