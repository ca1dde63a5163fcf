// Package goSession manages stateless JWT sessions with a single server-side refresh
// record per user and a jti blacklist for early revocation.
//
// Access tokens are short-lived HS256 JWTs verified without a store lookup, except for the
// blacklist check in [Engine.Authorize]. Refresh tokens are JWTs too, but each user has
// exactly one live refresh token, held in the token store. Rotating it replaces the stored
// value, so a rotated or superseded refresh token can never be used again. Rotation keeps
// the original expiry, which caps every session at JWT.RefreshTTL from login.
//
// Engine methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// goSession is the public surface: [Engine], [Builder], [Config], the sentinel errors and
// value types. Flow orchestration and audit dispatch live under internal/. Token encoding
// lives in jwt/ and persistence in store/.
//
// # Failure model
//
// Expected negative outcomes are sentinel errors matched with errors.Is and mapped to wire
// codes by [DescribeError]. A store outage surfaces as [ErrStoreUnavailable] and always
// denies: no session is issued, rotated or authorized without a store answer.
package goSession
