package rate

import "errors"

var (
	// ErrStoreUnavailable indicates the attempt store is unreachable.
	ErrStoreUnavailable = errors.New("attempt store unavailable")
)
