// Package credentials verifies login attempts against argon2id password hashes.
//
// [Directory] is an in-memory user table implementing goSession.CredentialVerifier. It
// is meant for single-node deployments and tests; production systems usually plug their own
// user store in behind the same interface and reuse [Argon2] for hashing.
package credentials
