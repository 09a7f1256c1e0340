package respondentgate

import "errors"

var (
	// ErrTooManyAttempts means the client identity has exhausted its
	// authentication attempt budget. Retriable once the cooldown elapses.
	ErrTooManyAttempts = errors.New("too many authentication attempts")
	// ErrInvalidCode means the submitted code is syntactically invalid or
	// has no associated case. Counted as a rate-limiter failure.
	ErrInvalidCode = errors.New("invalid access code")
	// ErrCodeAlreadyUsed means the code resolved to a case that was already
	// redeemed. Not counted as a rate-limiter failure.
	ErrCodeAlreadyUsed = errors.New("access code already used")
	// ErrDependencyUnavailable means the attempt store or IAC service could
	// not be reached.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrDependencyTimeout means a dependency exceeded its request budget.
	ErrDependencyTimeout = errors.New("dependency timed out")
	// ErrCryptoFailure means signing or encrypting the session token
	// failed. Fatal for the request and alert-worthy: it implies a key
	// provisioning defect, not respondent behavior.
	ErrCryptoFailure = errors.New("token crypto failure")
)
