//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	userEmail    = "alice@example.com"
	userPassword = "correct-password-123"
	userID       = int64(42)
)

var testSecret = []byte("integration-secret-0123456789abcdef")

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// backend is one Redis deployment the suite runs against. mr is nil for real servers, which
// cannot be fast-forwarded.
type backend struct {
	name   string
	client redis.UniversalClient
	mr     *miniredis.Miniredis
}

type redisMode struct {
	name  string
	setup func(t *testing.T) backend
}

// redisModes returns miniredis plus any real deployment named by REDIS_ADDR,
// REDIS_CLUSTER_ADDRS or REDIS_SENTINEL_ADDRS.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{{
		name: "miniredis",
		setup: func(t *testing.T) backend {
			t.Helper()
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
			t.Cleanup(func() { _ = rdb.Close() })
			return backend{name: "miniredis", client: rdb, mr: mr}
		},
	}}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) backend {
				t.Helper()
				return liveBackend(t, "standalone", redis.NewClient(&redis.Options{Addr: addr}))
			},
		})
	}
	if addrs := os.Getenv("REDIS_CLUSTER_ADDRS"); addrs != "" {
		modes = append(modes, redisMode{
			name: "cluster",
			setup: func(t *testing.T) backend {
				t.Helper()
				return liveBackend(t, "cluster", redis.NewClusterClient(&redis.ClusterOptions{Addrs: splitAddrs(addrs)}))
			},
		})
	}
	if addrs := os.Getenv("REDIS_SENTINEL_ADDRS"); addrs != "" {
		master := os.Getenv("REDIS_SENTINEL_MASTER")
		if master == "" {
			master = "mymaster"
		}
		modes = append(modes, redisMode{
			name: "sentinel",
			setup: func(t *testing.T) backend {
				t.Helper()
				return liveBackend(t, "sentinel", redis.NewFailoverClient(&redis.FailoverOptions{
					MasterName:    master,
					SentinelAddrs: splitAddrs(addrs),
				}))
			},
		})
	}
	return modes
}

// liveBackend isolates each test under a unique namespace instead of flushing shared
// databases.
func liveBackend(t *testing.T, name string, rdb redis.UniversalClient) backend {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("cannot connect to Redis %s: %v", name, err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return backend{name: name, client: rdb}
}

func splitAddrs(s string) []string {
	var addrs []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

type harness struct {
	backend
	engine    *goSession.Engine
	clock     *clock
	namespace string
}

func newHarness(t *testing.T, b backend, mutate ...func(*goSession.Config)) *harness {
	t.Helper()

	cfg := goSession.DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Audit.Enabled = false
	cfg.Session.KeyNamespace = "it:" + strings.NewReplacer("/", ":", " ", "_").Replace(t.Name()) + ":"
	for _, m := range mutate {
		m(&cfg)
	}

	clk := &clock{now: time.Now().Truncate(time.Second)}
	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(b.client).
		WithClock(clk.Now).
		WithCredentialVerifier(goSession.CredentialVerifierFunc(func(_ context.Context, email, password string) (goSession.Principal, error) {
			if email != userEmail || password != userPassword {
				return goSession.Principal{}, goSession.ErrInvalidCredentials
			}
			return goSession.Principal{UserID: userID, Email: userEmail, Role: goSession.RoleUser}, nil
		})).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		ctx := context.Background()
		keys, _ := b.client.Keys(ctx, cfg.Session.KeyNamespace+"*").Result()
		for _, k := range keys {
			b.client.Del(ctx, k)
		}
	})
	return &harness{backend: b, engine: engine, clock: clk, namespace: cfg.Session.KeyNamespace}
}

// advance moves the token clock, and the Redis clock when it can be controlled.
func (h *harness) advance(d time.Duration) {
	h.clock.mu.Lock()
	h.clock.now = h.clock.now.Add(d)
	h.clock.mu.Unlock()
	if h.mr != nil {
		h.mr.FastForward(d)
	}
}

func (h *harness) login(t *testing.T) *goSession.SessionTokens {
	t.Helper()
	tokens, err := h.engine.Login(context.Background(), userEmail, userPassword)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	return tokens
}

// forEachBackend runs fn once per configured Redis deployment.
func forEachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	for _, mode := range redisModes(t) {
		mode := mode
		t.Run(mode.name, func(t *testing.T) {
			fn(t, mode.setup(t))
		})
	}
}
