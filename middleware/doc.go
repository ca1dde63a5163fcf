// Package middleware adapts Engine.Authorize to net/http.
//
// [Guard] reads the bearer access token, authorizes it (signature, expiry and revocation)
// and stores the [goSession.AuthResult] in the request context for handlers to read with
// [AuthResultFromContext]. Rejections are written as the standard JSON error envelope.
//
// This package makes no authorization decisions of its own.
package middleware
