// Package lookup resolves a canonical access code to its case via the IAC
// service. The gate depends only on [Finder]; the HTTP client is one
// implementation of it.
package lookup

import (
	"context"
	"errors"
)

var (
	// ErrCaseNotFound indicates the code has no associated case.
	ErrCaseNotFound = errors.New("case not found")
	// ErrUnavailable indicates the IAC service could not be reached or
	// answered outside its contract.
	ErrUnavailable = errors.New("iac service unavailable")
)

// CaseSummary is the case-lookup result the claim set is built from.
type CaseSummary struct {
	CaseRef     string `json:"caseRef"`
	QuestionSet string `json:"questionSet"`
	Active      bool   `json:"active"`
}

// Finder resolves a canonical access code. Implementations return
// [ErrCaseNotFound] for unknown codes and an inactive summary (Active
// false) for codes that were already redeemed.
type Finder interface {
	FindCase(ctx context.Context, code string) (*CaseSummary, error)
}
