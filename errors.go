package goSession

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goSession/store"
)

var (
	// ErrMalformed is returned when a token cannot be parsed, lacks required claims or has the
	// wrong token type for the operation.
	ErrMalformed = errors.New("malformed token")
	// ErrInvalidSignature is returned when a token was not signed with the configured key.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrAccessTokenExpired is returned when an access token is past its expiry.
	ErrAccessTokenExpired = errors.New("access token expired")
	// ErrRefreshTokenExpired is returned when a refresh token, or the session's absolute
	// lifetime, has run out. Clients must log in again.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidRefreshToken is returned when a refresh token fails verification or does not
	// match the user's stored record.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrAccessTokenRevoked is returned when an access token's jti is blacklisted.
	ErrAccessTokenRevoked = errors.New("access token revoked")
	// ErrMissingRefreshToken is returned when no refresh token was presented.
	ErrMissingRefreshToken = errors.New("missing refresh token")
	// ErrMissingAccessToken is returned when no access token was presented.
	ErrMissingAccessToken = errors.New("missing access token")
	// ErrInvalidCredentials is returned by Authenticate for unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStoreUnavailable is returned when the token store cannot be reached. It is the same
	// value as store.ErrStoreUnavailable so either can be matched with errors.Is.
	ErrStoreUnavailable = store.ErrStoreUnavailable
	// ErrSessionIssueFailed is returned when tokens cannot be signed.
	ErrSessionIssueFailed = errors.New("session issue failed")

	// ErrInvalidRequest marks a request body the transport layer could not decode.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrResourceNotFound marks a request for an unknown route.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrMethodNotAllowed marks a known route requested with an unsupported method.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// ErrorDescriptor is the wire representation of an error: a stable business code, a
// client-facing message and the HTTP status it maps to.
type ErrorDescriptor struct {
	Code    string
	Message string
	Status  int
}

var errorTable = []struct {
	err  error
	desc ErrorDescriptor
}{
	{ErrStoreUnavailable, ErrorDescriptor{"STORE_503_001", "Session store is temporarily unavailable.", http.StatusServiceUnavailable}},
	{ErrAccessTokenRevoked, ErrorDescriptor{"JWT_401_008", "Access token has been revoked.", http.StatusUnauthorized}},
	{ErrAccessTokenExpired, ErrorDescriptor{"JWT_401_004", "Access token has expired.", http.StatusUnauthorized}},
	{ErrRefreshTokenExpired, ErrorDescriptor{"JWT_401_005", "Refresh token has expired. Please log in again.", http.StatusUnauthorized}},
	{ErrInvalidRefreshToken, ErrorDescriptor{"JWT_401_003", "Refresh token is invalid.", http.StatusUnauthorized}},
	{ErrInvalidSignature, ErrorDescriptor{"JWT_401_007", "Token signature is invalid.", http.StatusUnauthorized}},
	{ErrMalformed, ErrorDescriptor{"JWT_401_006", "Token is malformed or unsupported.", http.StatusUnauthorized}},
	{ErrMissingRefreshToken, ErrorDescriptor{"JWT_401_009", "Refresh token is missing.", http.StatusUnauthorized}},
	{ErrMissingAccessToken, ErrorDescriptor{"AUTH_401_004", "Authentication information was not found.", http.StatusUnauthorized}},
	{ErrInvalidCredentials, ErrorDescriptor{"AUTH_401_001", "Login failed: email or password is incorrect.", http.StatusUnauthorized}},
	{ErrInvalidRequest, ErrorDescriptor{"G001", "Invalid input value.", http.StatusBadRequest}},
	{ErrResourceNotFound, ErrorDescriptor{"G002", "Requested resource was not found.", http.StatusNotFound}},
	{ErrMethodNotAllowed, ErrorDescriptor{"G004", "Request method is not supported for this resource.", http.StatusMethodNotAllowed}},
}

var internalErrorDescriptor = ErrorDescriptor{"G003", "Internal server error.", http.StatusInternalServerError}

// DescribeError maps err to its wire descriptor. Errors outside the session taxonomy map to
// the generic internal error.
func DescribeError(err error) ErrorDescriptor {
	if err == nil {
		return ErrorDescriptor{}
	}
	for _, row := range errorTable {
		if errors.Is(err, row.err) {
			return row.desc
		}
	}
	return internalErrorDescriptor
}

// IsAuthFailure reports whether err is an expected authentication failure (a 401) rather
// than an infrastructure fault.
func IsAuthFailure(err error) bool {
	return DescribeError(err).Status == http.StatusUnauthorized
}
