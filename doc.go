// Package respondentgate authenticates a respondent's one-time Internet
// Access Code and redeems it for a signed, encrypted questionnaire session
// token.
//
// The package is the orchestration surface. It exposes [Gate], [Builder],
// [Config], and the sentinel error taxonomy; the moving parts live in leaf
// packages:
//
//   - internal/rate — Redis-backed sliding-window attempt limiter
//   - claims        — pure claim-set construction from the case lookup result
//   - token         — RS256 JWS signing wrapped in RSA-OAEP/A256GCM JWE
//   - iac           — access-code canonicalization and syntactic checks
//   - lookup        — the IAC service collaborator
//
// Gate methods are safe to call from multiple goroutines; the attempt
// store is the only cross-request state. Each grant is built fresh — claim
// sets and tokens are never cached or reused.
//
// # What this package must NOT do
//
//   - Render HTML, manage cookies, or route HTTP (the web layer owns
//     those; see examples/http-minimal for wiring).
//   - Clear a client's failure counter on success: the reference policy
//     lets counters age out on their own.
//   - Inspect an issued token: it is opaque once the issuer returns it.
package respondentgate
