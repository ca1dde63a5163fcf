package flows

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
)

// RotateFailureKind classifies rotation failures for root-level mapping.
type RotateFailureKind int

const (
	RotateFailureNone RotateFailureKind = iota
	RotateFailureMissing
	RotateFailureVerify
	RotateFailureExpired
	RotateFailureWrongType
	RotateFailureStoreRead
	RotateFailureNotFound
	RotateFailureMismatch
	RotateFailureLifetimeExhausted
	RotateFailureSign
	RotateFailurePersist
	RotateFailureSuperseded
)

// RotateStage names the state a rotation attempt reached before it stopped.
type RotateStage string

const (
	RotateStageExtract  RotateStage = "extract"
	RotateStageValidate RotateStage = "validate"
	RotateStageCompare  RotateStage = "compare"
	RotateStageRotate   RotateStage = "rotate"
)

// RotateDeps captures rotation flow dependencies.
type RotateDeps struct {
	Codec     TokenCodec
	Store     store.TokenStore
	AccessTTL time.Duration
	// Swapper, when set, persists the new refresh token only if the record still holds the
	// presented one. Nil keeps last-write-wins semantics.
	Swapper store.Swapper
}

// RotateResult carries either the rotated pair or failure metadata.
type RotateResult struct {
	Failure RotateFailureKind
	Stage   RotateStage
	Err     error
	UserID  int64
	Tokens  TokenPair
}

func rotateFailed(stage RotateStage, kind RotateFailureKind, userID int64, err error) RotateResult {
	return RotateResult{Failure: kind, Stage: stage, UserID: userID, Err: err}
}

// RunRotate validates refreshToken against the user's stored record and replaces it.
//
// The new refresh token keeps the presented token's expiry, so rotation never extends a
// session past its original absolute lifetime. A token that is valid on its own but no
// longer matches the stored record (rotated out, or superseded by a newer login) is
// rejected as a mismatch.
func RunRotate(ctx context.Context, refreshToken string, deps RotateDeps) RotateResult {
	if refreshToken == "" {
		return rotateFailed(RotateStageExtract, RotateFailureMissing, 0, nil)
	}

	claims, err := deps.Codec.Verify(refreshToken)
	switch classifyVerify(err) {
	case VerifyFailureNone:
	case VerifyFailureExpired:
		return rotateFailed(RotateStageValidate, RotateFailureExpired, 0, err)
	default:
		return rotateFailed(RotateStageValidate, RotateFailureVerify, 0, err)
	}
	if claims.Type != jwt.TypeRefresh {
		return rotateFailed(RotateStageValidate, RotateFailureWrongType, claims.UserID, nil)
	}

	stored, ok, err := deps.Store.GetRefresh(ctx, claims.UserID)
	if err != nil {
		return rotateFailed(RotateStageCompare, RotateFailureStoreRead, claims.UserID, err)
	}
	if !ok {
		return rotateFailed(RotateStageCompare, RotateFailureNotFound, claims.UserID, nil)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		return rotateFailed(RotateStageCompare, RotateFailureMismatch, claims.UserID, nil)
	}

	if claims.Remaining(deps.Codec.Now()) <= 0 {
		return rotateFailed(RotateStageRotate, RotateFailureLifetimeExhausted, claims.UserID, nil)
	}

	id := identityFromClaims(claims)
	access, accessClaims, err := deps.Codec.Issue(id.claims(jwt.TypeAccess), deps.AccessTTL)
	if err != nil {
		return rotateFailed(RotateStageRotate, RotateFailureSign, claims.UserID, err)
	}
	refresh, refreshClaims, err := deps.Codec.IssueUntil(id.claims(jwt.TypeRefresh), claims.ExpiresAt)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return rotateFailed(RotateStageRotate, RotateFailureLifetimeExhausted, claims.UserID, nil)
		}
		return rotateFailed(RotateStageRotate, RotateFailureSign, claims.UserID, err)
	}

	remaining := refreshClaims.Remaining(deps.Codec.Now())
	if remaining <= 0 {
		return rotateFailed(RotateStageRotate, RotateFailureLifetimeExhausted, claims.UserID, nil)
	}

	if deps.Swapper != nil {
		err = deps.Swapper.SwapRefresh(ctx, claims.UserID, refreshToken, refresh, remaining)
		if errors.Is(err, store.ErrRefreshMismatch) {
			return rotateFailed(RotateStageRotate, RotateFailureSuperseded, claims.UserID, err)
		}
	} else {
		err = deps.Store.PutRefresh(ctx, claims.UserID, refresh, remaining)
	}
	if err != nil {
		return rotateFailed(RotateStageRotate, RotateFailurePersist, claims.UserID, err)
	}

	return RotateResult{
		Stage:  RotateStageRotate,
		UserID: claims.UserID,
		Tokens: TokenPair{
			Access:        access,
			AccessClaims:  accessClaims,
			Refresh:       refresh,
			RefreshClaims: refreshClaims,
			RefreshTTL:    remaining,
		},
	}
}
