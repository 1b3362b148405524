package rfc3779

import "errors"

// Error kinds raised by the text-form parser (C6) and the path validator
// (C8), spec.md §7. The resource-construction kinds (InvalidInheritance,
// InvalidAsNumber, InvalidAsRange, InternalError) live in package resource
// since C3/C5 raise them directly; this package's errors.Is chain reaches
// them unwrapped.
var (
	ErrExtensionName  = errors.New("rfc3779: unrecognized configuration name")
	ErrExtensionValue = errors.New("rfc3779: malformed configuration value")
	ErrUnnestedResource = errors.New("rfc3779: unnested resource")
)
