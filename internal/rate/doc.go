// Package rate provides the Redis-backed attempt limiter that gates
// authentication attempts per client identity.
//
// # Window semantics
//
// Sliding-window counters: every recorded failure is a single MULTI/EXEC
// that increments the counter and resets its TTL, so the window only
// expires after the client has been quiet for the full cooldown. Key
// prefix:
//   - att: — authentication attempts per client identity
//
// # What this package must NOT do
//
//   - Decide what happens when the backing store is down (the gate owns
//     the fail-open policy).
//   - Reset a counter on successful authentication; no such operation
//     exists.
package rate
