package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
)

// AuthorizeFailureKind classifies authorization failures for root-level mapping.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureMissing
	AuthorizeFailureMalformed
	AuthorizeFailureSignature
	AuthorizeFailureExpired
	AuthorizeFailureWrongType
	AuthorizeFailureRevoked
	AuthorizeFailureStore
)

// AuthorizeDeps captures authorization flow dependencies.
type AuthorizeDeps struct {
	Codec TokenCodec
	Store store.TokenStore
}

// AuthorizeResult returns either verified claims or a classified failure.
type AuthorizeResult struct {
	Failure AuthorizeFailureKind
	Err     error
	Claims  jwt.Claims
}

// RunAuthorize verifies accessToken and then consults the blacklist. The jti is only
// trusted once the signature checks out, and the blacklist is consulted for every verified
// token. A store failure denies the request.
func RunAuthorize(ctx context.Context, accessToken string, deps AuthorizeDeps) AuthorizeResult {
	if accessToken == "" {
		return AuthorizeResult{Failure: AuthorizeFailureMissing}
	}

	claims, err := deps.Codec.Verify(accessToken)
	switch classifyVerify(err) {
	case VerifyFailureNone:
	case VerifyFailureExpired:
		return AuthorizeResult{Failure: AuthorizeFailureExpired, Err: err}
	case VerifyFailureSignature:
		return AuthorizeResult{Failure: AuthorizeFailureSignature, Err: err}
	default:
		return AuthorizeResult{Failure: AuthorizeFailureMalformed, Err: err}
	}
	if claims.Type != jwt.TypeAccess {
		return AuthorizeResult{Failure: AuthorizeFailureWrongType, Claims: claims}
	}

	revoked, err := deps.Store.IsBlacklisted(ctx, claims.TokenID)
	if err != nil {
		return AuthorizeResult{Failure: AuthorizeFailureStore, Err: err, Claims: claims}
	}
	if revoked {
		return AuthorizeResult{Failure: AuthorizeFailureRevoked, Claims: claims}
	}
	return AuthorizeResult{Claims: claims}
}
