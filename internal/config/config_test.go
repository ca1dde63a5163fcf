package config

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessiond.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", s.HTTP.Addr)
	assert.Equal(t, 15*time.Minute, s.JWT.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, s.JWT.RefreshTTL)
	assert.Equal(t, []string{"localhost:6379"}, s.Redis.Addrs)
	assert.Equal(t, "refreshToken", s.Cookie.Name)
	assert.True(t, s.Audit.Enabled)
	assert.Equal(t, "info", s.Logging.Level)

	// no secret yet
	_, err = s.EngineConfig()
	assert.Error(t, err)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := writeYAML(t, `
jwt:
  secret: "`+testSecret+`"
  access_ttl: 5m
  refresh_ttl: 240h
session:
  key_namespace: "app1:"
  strict_rotation: true
cookie:
  secure: false
  same_site: strict
redis:
  addrs: ["redis-a:6379"]
  retry:
    enabled: false
logging:
  format: console
`)
	t.Setenv("GOSESSION_JWT_ACCESS_TTL", "10m")
	t.Setenv("GOSESSION_REDIS_ADDRS", "redis-a:6379,redis-b:6379")
	t.Setenv("GOSESSION_AUDIT_BUFFER_SIZE", "64")

	s, err := Load(path)
	require.NoError(t, err)

	cfg, err := s.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, []byte(testSecret), cfg.JWT.Secret)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 240*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "app1:", cfg.Session.KeyNamespace)
	assert.True(t, cfg.Session.StrictRotation)
	assert.Equal(t, http.SameSiteStrictMode, cfg.Cookie.SameSite)
	assert.False(t, cfg.Cookie.Secure)
	assert.Equal(t, 64, cfg.Audit.BufferSize)

	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, s.RedisOptions().Addrs)
	_, retry := s.RetryConfig()
	assert.False(t, retry)
	assert.Equal(t, "console", s.Logging.Format)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEngineConfigRejectsSameSite(t *testing.T) {
	path := writeYAML(t, `
jwt:
  secret: "`+testSecret+`"
cookie:
  same_site: sideways
`)
	s, err := Load(path)
	require.NoError(t, err)
	_, err = s.EngineConfig()
	assert.ErrorContains(t, err, "same_site")
}

func TestDirectoryFromSeededUsers(t *testing.T) {
	path := writeYAML(t, `
password:
  memory: 8192
  time: 1
  parallelism: 1
users:
  - id: 1
    email: Admin@Example.com
    role: ROLE_ADMIN
    password: admin-password-1
  - id: 2
    email: user@example.com
    password: user-password-22
`)
	s, err := Load(path)
	require.NoError(t, err)

	dir, err := s.Directory()
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Len())

	p, err := dir.VerifyCredentials(context.Background(), "admin@example.com", "admin-password-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.UserID)
	assert.Equal(t, goSession.RoleAdmin, p.Role)

	_, err = dir.VerifyCredentials(context.Background(), "user@example.com", "wrong-password")
	assert.ErrorIs(t, err, goSession.ErrInvalidCredentials)
}

func TestDirectoryRequiresPassword(t *testing.T) {
	path := writeYAML(t, `
password:
  memory: 8192
  time: 1
  parallelism: 1
users:
  - id: 3
    email: nobody@example.com
`)
	s, err := Load(path)
	require.NoError(t, err)
	_, err = s.Directory()
	assert.ErrorContains(t, err, "users[0]")
}
