// Package store keeps refresh-token records and the access-token blacklist in an external
// key-value store.
//
// # Layout
//
//	refresh_token:<userId>  -> refresh token string, TTL = refresh lifetime
//	blacklist:<jti>         -> "1", TTL = remaining access-token lifetime
//
// At most one refresh record exists per user; every write replaces the previous one.
// Blacklist entries expire on their own, so no cleanup job is required.
//
// # Failure semantics
//
// Transport failures are reported as [ErrStoreUnavailable]. A missing key is a normal
// outcome, never an error. Callers making authentication decisions must treat
// [ErrStoreUnavailable] as a hard failure.
//
// # Implementations
//
//   - [RedisStore] for production, on go-redis.
//   - [MemoryStore] for tests and single-process development.
//   - [Retrying] and [Traced] decorate any [TokenStore].
//
// # What this package must NOT do
//
//   - Import goSession or jwt (no upward imports).
//   - Parse or validate token contents.
package store
