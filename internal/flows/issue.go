package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
)

// IssueFailureKind classifies issue flow failures for root-level mapping.
type IssueFailureKind int

const (
	IssueFailureNone IssueFailureKind = iota
	IssueFailureSign
	IssueFailurePersist
)

// IssueDeps captures issue flow dependencies.
type IssueDeps struct {
	Codec      TokenCodec
	Store      store.TokenStore
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// IssueResult carries either the issued pair or failure metadata.
type IssueResult struct {
	Failure IssueFailureKind
	Err     error
	Tokens  TokenPair
}

// RunIssue signs an access/refresh pair for id and persists the refresh token as the
// user's only live record, superseding any earlier session.
func RunIssue(ctx context.Context, id Identity, deps IssueDeps) IssueResult {
	access, accessClaims, err := deps.Codec.Issue(id.claims(jwt.TypeAccess), deps.AccessTTL)
	if err != nil {
		return IssueResult{Failure: IssueFailureSign, Err: err}
	}
	refresh, refreshClaims, err := deps.Codec.Issue(id.claims(jwt.TypeRefresh), deps.RefreshTTL)
	if err != nil {
		return IssueResult{Failure: IssueFailureSign, Err: err}
	}

	if err := deps.Store.PutRefresh(ctx, id.UserID, refresh, deps.RefreshTTL); err != nil {
		return IssueResult{Failure: IssueFailurePersist, Err: err}
	}

	return IssueResult{
		Tokens: TokenPair{
			Access:        access,
			AccessClaims:  accessClaims,
			Refresh:       refresh,
			RefreshClaims: refreshClaims,
			RefreshTTL:    deps.RefreshTTL,
		},
	}
}
