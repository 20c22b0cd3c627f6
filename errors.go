package fetchmeter

import "github.com/Azzadd/fetchmeter/core"

// Sentinel errors for common failure conditions.
// Re-exported from core package.
var (
	// ErrNotFound indicates the requested resource was not found. Fetchers
	// report absence as (nil, nil); this sentinel is for callers that must
	// treat absence as a failure.
	ErrNotFound = core.ErrNotFound

	// ErrUnauthorized indicates the remote rejected the request for lack
	// of credentials.
	ErrUnauthorized = core.ErrUnauthorized

	// ErrInvalidLocation indicates a resource location could not be parsed.
	ErrInvalidLocation = core.ErrInvalidLocation

	// ErrUnsafePath indicates a destination path that escapes its base
	// directory.
	ErrUnsafePath = core.ErrUnsafePath
)
