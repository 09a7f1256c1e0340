package respondentgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/censusops/respondentgate/claims"
	"github.com/censusops/respondentgate/iac"
	"github.com/censusops/respondentgate/internal/rate"
	"github.com/censusops/respondentgate/lookup"
	"github.com/censusops/respondentgate/token"
)

// Gate is the authentication orchestrator: it gates each attempt through
// the rate limiter, resolves the code to a case, and issues the session
// token. Safe for concurrent use; the attempt store is the only state
// shared between requests.
type Gate struct {
	config  Config
	limiter *rate.Limiter
	finder  lookup.Finder
	issuer  *token.Issuer
	logger  *slog.Logger
}

// Blocked is the admission check for the landing page: it reports whether
// the client is currently rate-limited without recording anything. A store
// outage fails open.
func (g *Gate) Blocked(ctx context.Context, req AuthRequest) bool {
	return g.blocked(ctx, clientIdentity(req))
}

// Authenticate runs one authentication attempt end to end and returns the
// issued grant or one of the package's sentinel errors.
func (g *Gate) Authenticate(ctx context.Context, req AuthRequest) (*Grant, error) {
	identity := clientIdentity(req)

	if g.blocked(ctx, identity) {
		return nil, ErrTooManyAttempts
	}

	code := iac.Canonicalize(req.Segments...)
	if !iac.Valid(code) {
		g.recordFailure(ctx, identity)
		return nil, ErrInvalidCode
	}

	summary, err := g.findCase(ctx, code)
	if err != nil {
		if errors.Is(err, lookup.ErrCaseNotFound) {
			g.recordFailure(ctx, identity)
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if !summary.Active {
		// Already-redeemed codes are a respondent mistake, not an attack;
		// they do not count against the attempt budget.
		return nil, ErrCodeAlreadyUsed
	}

	locale := LocaleFromRequest(req.AcceptLanguage, req.URL)
	claimSet := claims.Build(summary.CaseRef, summary.QuestionSet, locale, time.Now(), g.config.Token.Validity)
	if claimSet.FormType == "" {
		g.logger.Warn("question set matched no form type family",
			"question_set", summary.QuestionSet, "case_ref", summary.CaseRef)
	}

	tok, err := g.issuer.Issue(claimSet)
	if err != nil {
		g.logger.Error("session token issuance failed",
			"key_id", g.config.Token.KeyID, "tx_id", claimSet.TransactionID, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	g.logger.Info("redirecting respondent to questionnaire",
		"client", identity, "tx_id", claimSet.TransactionID, "language", locale)

	return &Grant{
		Token:         tok,
		TransactionID: claimSet.TransactionID,
		LanguageCode:  locale,
		LaunchURL: fmt.Sprintf("%s://%s:%d/session?token=%s",
			g.config.EQ.Protocol, g.config.EQ.Host, g.config.EQ.Port, url.QueryEscape(tok)),
	}, nil
}

// blocked consults the limiter, failing open on a store outage: losing
// throttling for the length of a Redis blip beats refusing every
// respondent.
func (g *Gate) blocked(ctx context.Context, identity string) bool {
	blocked, err := g.limiter.Blocked(ctx, identity)
	if err != nil {
		g.logger.Warn("attempt store unreachable, admitting without throttle check",
			"client", identity, "err", err)
		return false
	}
	return blocked
}

// recordFailure counts a failed attempt, failing open on a store outage.
func (g *Gate) recordFailure(ctx context.Context, identity string) {
	if err := g.limiter.RecordFailure(ctx, identity); err != nil {
		g.logger.Warn("attempt store unreachable, failure not recorded",
			"client", identity, "err", err)
	}
}

// findCase runs the lookup under its own deadline so a hung IAC service
// surfaces as a timeout instead of an indefinite suspension.
func (g *Gate) findCase(ctx context.Context, code string) (*lookup.CaseSummary, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, g.config.Lookup.Timeout)
	defer cancel()

	summary, err := g.finder.FindCase(lookupCtx, code)
	if err != nil {
		switch {
		case errors.Is(err, lookup.ErrCaseNotFound):
			return nil, err
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: case lookup: %v", ErrDependencyTimeout, err)
		default:
			return nil, fmt.Errorf("%w: case lookup: %v", ErrDependencyUnavailable, err)
		}
	}
	return summary, nil
}
