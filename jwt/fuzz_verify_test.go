package jwt

import (
	"errors"
	"testing"
	"time"
)

// FuzzVerify feeds arbitrary strings to Verify. It must never panic and every failure must
// be one of the codec's classified errors.
func FuzzVerify(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("a.b.c")
	f.Add("!!!not-base64!!!.e30.")
	f.Add("eyJhbGciOiJub25lIn0.e30.")

	clock := newFakeClock()
	c, err := NewCodec(Config{Secret: testSecret, Issuer: "gosession", Now: clock.Now})
	if err != nil {
		f.Fatalf("new codec: %v", err)
	}
	if token, _, err := c.Issue(Claims{UserID: 1, Email: "a@example.com", Role: "ROLE_USER", Type: TypeAccess}, time.Minute); err == nil {
		f.Add(token)
		f.Add(token[:len(token)-2])
	}

	f.Fuzz(func(t *testing.T, token string) {
		claims, err := c.Verify(token)
		if err == nil {
			if claims.TokenID == "" {
				t.Fatalf("verified token without required claims: %+v", claims)
			}
			return
		}
		if !errors.Is(err, ErrMalformed) && !errors.Is(err, ErrInvalidSignature) && !errors.Is(err, ErrExpired) {
			t.Fatalf("unclassified error for %q: %v", token, err)
		}
	})
}
