package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/respond"
)

// Authorizer is the part of *goSession.Engine the guard needs.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (*goSession.AuthResult, error)
}

type authResultContextKey struct{}

func AuthResultFromContext(ctx context.Context) (*goSession.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goSession.AuthResult)
	return res, ok
}

// Guard rejects requests without a valid, unrevoked access token. A store outage is
// reported as 503, every token problem as 401.
func Guard(engine Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				respond.Error(w, goSession.ErrMissingAccessToken)
				return
			}

			ctx := RequestContext(r)
			res, err := engine.Authorize(ctx, BearerToken(r))
			if err != nil {
				respond.Error(w, err)
				return
			}

			ctx = context.WithValue(ctx, authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header. It
// returns "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestContext attaches the caller's IP and User-Agent to the request context for audit
// events.
func RequestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := goSession.WithClientIP(r.Context(), host)
	return goSession.WithUserAgent(ctx, r.UserAgent())
}
