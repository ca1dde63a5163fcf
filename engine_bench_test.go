package goSession

import (
	"context"
	"testing"

	"github.com/MrEthical07/goSession/store"
)

func newBenchEngine(b *testing.B) *Engine {
	b.Helper()
	cfg := validTestConfig()
	cfg.Audit.Enabled = false
	engine, err := New().
		WithConfig(cfg).
		WithStore(store.NewMemoryStore(nil)).
		WithCredentialVerifier(testVerifier()).
		Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	b.Cleanup(engine.Close)
	return engine
}

func BenchmarkAuthorize(b *testing.B) {
	engine := newBenchEngine(b)
	ctx := context.Background()
	tokens, err := engine.IssueSession(ctx, Principal{UserID: testUserID, Email: testEmail, Role: RoleUser})
	if err != nil {
		b.Fatalf("IssueSession failed: %v", err)
	}
	b.ReportAllocs()

	for b.Loop() {
		if _, err := engine.Authorize(ctx, tokens.AccessToken); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRotate(b *testing.B) {
	engine := newBenchEngine(b)
	ctx := context.Background()
	tokens, err := engine.IssueSession(ctx, Principal{UserID: testUserID, Email: testEmail, Role: RoleUser})
	if err != nil {
		b.Fatalf("IssueSession failed: %v", err)
	}
	refresh := tokens.RefreshToken
	b.ReportAllocs()

	for b.Loop() {
		next, err := engine.Rotate(ctx, refresh)
		if err != nil {
			b.Fatal(err)
		}
		refresh = next.RefreshToken
	}
}

func BenchmarkIssueSession(b *testing.B) {
	engine := newBenchEngine(b)
	ctx := context.Background()
	p := Principal{UserID: testUserID, Email: testEmail, Role: RoleUser}
	b.ReportAllocs()

	for b.Loop() {
		if _, err := engine.IssueSession(ctx, p); err != nil {
			b.Fatal(err)
		}
	}
}
