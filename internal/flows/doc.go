// Package flows contains the orchestration behind every Engine session operation.
//
// Each flow function (RunIssue, RunRotate, RunEndSession, RunAuthorize) accepts a typed
// dependency struct and returns a result carrying either the payload or a classified
// failure. The Engine maps failure kinds to its public errors, metrics and audit events.
//
// # Architecture boundaries
//
// Flows coordinate the token codec and token store. They do NOT own either. Ownership
// stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goSession (to avoid import cycles).
//   - Retry store calls. Retrying is a store decorator concern.
package flows
