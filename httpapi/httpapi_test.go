package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/internal/respond"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "correct-password-123"
)

type apiHarness struct {
	handler http.Handler
	mr      *miniredis.Miniredis
	cookie  string
}

func newAPIHarness(t *testing.T, opts Options) *apiHarness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := goSession.DefaultConfig()
	cfg.JWT.Secret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Cookie.Secure = false
	cfg.Audit.Enabled = false

	engine, err := goSession.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithCredentialVerifier(goSession.CredentialVerifierFunc(func(_ context.Context, email, password string) (goSession.Principal, error) {
			if email != testEmail || password != testPassword {
				return goSession.Principal{}, goSession.ErrInvalidCredentials
			}
			return goSession.Principal{UserID: 7, Email: testEmail, Role: goSession.RoleAdmin}, nil
		})).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return &apiHarness{handler: NewRouter(engine, opts), mr: mr, cookie: cfg.Cookie.Name}
}

func (h *apiHarness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) login(t *testing.T) (access string, refresh *http.Cookie) {
	t.Helper()
	rec := h.do(loginRequestFor(testEmail, testPassword))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec.Header().Get("Authorization"), h.refreshCookie(t, rec)
}

func (h *apiHarness) refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == h.cookie {
			return c
		}
	}
	t.Fatalf("response carries no %q cookie", h.cookie)
	return nil
}

func loginRequestFor(email, password string) *http.Request {
	body, _ := json.Marshal(loginRequest{Email: email, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) respond.Envelope {
	t.Helper()
	var env respond.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestLoginSetsHeaderAndCookie(t *testing.T) {
	h := newAPIHarness(t, Options{})

	rec := h.do(loginRequestFor(testEmail, testPassword))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, strings.HasPrefix(rec.Header().Get("Authorization"), "Bearer "))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	c := h.refreshCookie(t, rec)
	assert.NotEmpty(t, c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, int((14 * 24 * time.Hour).Seconds()), c.MaxAge)

	env := decodeEnvelope(t, rec)
	assert.True(t, env.IsSuccess)
	assert.Equal(t, respond.CodeLoginOK, env.Code)
	result, ok := env.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), result["id"])
	assert.Equal(t, testEmail, result["email"])
	assert.Equal(t, string(goSession.RoleAdmin), result["role"])
}

func TestLoginRejections(t *testing.T) {
	h := newAPIHarness(t, Options{})

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{"wrong password", loginRequestFor(testEmail, "nope-nope-nope"), http.StatusUnauthorized, "AUTH_401_001"},
		{"unknown user", loginRequestFor("bob@example.com", testPassword), http.StatusUnauthorized, "AUTH_401_001"},
		{"empty password", loginRequestFor(testEmail, ""), http.StatusBadRequest, "G001"},
		{"not json", httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{")), http.StatusBadRequest, "G001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(tt.req)
			assert.Equal(t, tt.status, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.False(t, env.IsSuccess)
			assert.Equal(t, tt.code, env.Code)
			assert.Empty(t, rec.Header().Get("Authorization"))
		})
	}
}

func TestRefreshRotatesCookie(t *testing.T) {
	h := newAPIHarness(t, Options{})
	access, first := h.login(t)

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	req.AddCookie(first)
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, respond.CodeRefreshOK, decodeEnvelope(t, rec).Code)

	second := h.refreshCookie(t, rec)
	assert.NotEqual(t, first.Value, second.Value)
	assert.NotEqual(t, access, rec.Header().Get("Authorization"))
	assert.Positive(t, second.MaxAge)

	// the predecessor no longer matches the stored record
	replay := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	replay.AddCookie(first)
	rec = h.do(replay)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "JWT_401_003", decodeEnvelope(t, rec).Code)
	assert.Negative(t, h.refreshCookie(t, rec).MaxAge)
}

func TestRefreshWithoutCookie(t *testing.T) {
	h := newAPIHarness(t, Options{})

	rec := h.do(httptest.NewRequest(http.MethodPost, "/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "JWT_401_009", decodeEnvelope(t, rec).Code)
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	h := newAPIHarness(t, Options{})
	access, _ := h.login(t)

	me := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", access)
		return h.do(req)
	}

	rec := me()
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeEnvelope(t, rec).Result.(map[string]any)
	assert.Equal(t, testEmail, result["email"])

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", access)
	rec = h.do(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Negative(t, h.refreshCookie(t, rec).MaxAge)

	rec = me()
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "JWT_401_008", decodeEnvelope(t, rec).Code)
}

func TestLogoutWithoutToken(t *testing.T) {
	h := newAPIHarness(t, Options{})

	rec := h.do(httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "AUTH_401_004", decodeEnvelope(t, rec).Code)
}

func TestHealthReportsStoreOutage(t *testing.T) {
	h := newAPIHarness(t, Options{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	h.mr.Close()
	rec = h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "STORE_503_001", decodeEnvelope(t, rec).Code)
}

func TestUnknownRoute(t *testing.T) {
	h := newAPIHarness(t, Options{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "G002", decodeEnvelope(t, rec).Code)
}

func TestWrongMethodUsesEnvelope(t *testing.T) {
	h := newAPIHarness(t, Options{})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.IsSuccess)
	assert.Equal(t, "G004", env.Code)
	assert.NotEmpty(t, env.Message)
}

func TestMetricsHandlerMounted(t *testing.T) {
	h := newAPIHarness(t, Options{MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCORSExposesAuthorization(t *testing.T) {
	h := newAPIHarness(t, Options{AllowedOrigins: []string{"https://app.example.com"}})

	req := loginRequestFor(testEmail, testPassword)
	req.Header.Set("Origin", "https://app.example.com")
	rec := h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Authorization")
}

func TestMaxAgeSeconds(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want int
	}{
		{14 * 24 * time.Hour, 1209600},
		{90*time.Second + 900*time.Millisecond, 90},
		{300 * time.Millisecond, 1},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maxAgeSeconds(tt.ttl), tt.ttl.String())
	}
}
