package flows

import (
	"context"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
)

// EndSessionFailureKind classifies end-session failures for root-level mapping.
type EndSessionFailureKind int

const (
	EndSessionFailureNone EndSessionFailureKind = iota
	EndSessionFailureMissing
	EndSessionFailureMalformed
	EndSessionFailureSignature
	EndSessionFailureWrongType
	EndSessionFailureBlacklist
	EndSessionFailureDeleteRefresh
)

// EndSessionDeps captures end-session flow dependencies.
type EndSessionDeps struct {
	Codec TokenCodec
	Store store.TokenStore
}

// EndSessionResult reports what the flow revoked.
type EndSessionResult struct {
	Failure EndSessionFailureKind
	Err     error
	Claims  jwt.Claims
	// Blacklisted is false when Verify would already reject the access token and no entry was needed.
	Blacklisted bool
}

// RunEndSession revokes accessToken and the user's refresh record.
//
// An access token past its expiry and leeway is accepted: nothing needs blacklisting, but the
// refresh record is still removed. The blacklist entry lives exactly as long as Verify would
// still accept the token.
func RunEndSession(ctx context.Context, accessToken string, deps EndSessionDeps) EndSessionResult {
	if accessToken == "" {
		return EndSessionResult{Failure: EndSessionFailureMissing}
	}

	claims, err := deps.Codec.VerifyAllowExpired(accessToken)
	switch classifyVerify(err) {
	case VerifyFailureNone:
	case VerifyFailureSignature:
		return EndSessionResult{Failure: EndSessionFailureSignature, Err: err}
	default:
		return EndSessionResult{Failure: EndSessionFailureMalformed, Err: err}
	}
	if claims.Type != jwt.TypeAccess {
		return EndSessionResult{Failure: EndSessionFailureWrongType, Claims: claims}
	}

	res := EndSessionResult{Claims: claims}
	// Verify keeps accepting the token for Leeway past its expiry, so the entry must too.
	if remaining := claims.Remaining(deps.Codec.Now()) + deps.Codec.Leeway(); remaining > 0 {
		if err := deps.Store.Blacklist(ctx, claims.TokenID, remaining); err != nil {
			res.Failure = EndSessionFailureBlacklist
			res.Err = err
			return res
		}
		res.Blacklisted = true
	}

	if err := deps.Store.DeleteRefresh(ctx, claims.UserID); err != nil {
		res.Failure = EndSessionFailureDeleteRefresh
		res.Err = err
		return res
	}
	return res
}
