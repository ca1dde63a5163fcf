// Package jwt signs and verifies the compact HS256 tokens that carry a session's claims.
//
// Access and refresh tokens share one claims layout and are told apart by the "typ"
// claim. Every token gets a fresh UUID "jti" so that a single instance can be revoked.
// Verification failures are reported as one of [ErrMalformed], [ErrInvalidSignature]
// or [ErrExpired] so callers can map them without inspecting library errors.
package jwt
