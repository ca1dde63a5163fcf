// Package config loads sessiond settings from defaults, an optional YAML file and
// GOSESSION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/credentials"
	"github.com/MrEthical07/goSession/internal/logging"
	"github.com/MrEthical07/goSession/store"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

const envPrefix = "GOSESSION"

type Settings struct {
	HTTP     HTTPSettings           `mapstructure:"http"`
	JWT      JWTSettings            `mapstructure:"jwt"`
	Session  SessionSettings        `mapstructure:"session"`
	Cookie   CookieSettings         `mapstructure:"cookie"`
	Audit    AuditSettings          `mapstructure:"audit"`
	Metrics  MetricsSettings        `mapstructure:"metrics"`
	Redis    RedisSettings          `mapstructure:"redis"`
	Logging  logging.Config         `mapstructure:"logging"`
	Password credentials.HashConfig `mapstructure:"password"`
	Users    []UserSettings         `mapstructure:"users"`
}

type HTTPSettings struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type JWTSettings struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
	Leeway     time.Duration `mapstructure:"leeway"`
}

type SessionSettings struct {
	KeyNamespace   string `mapstructure:"key_namespace"`
	StrictRotation bool   `mapstructure:"strict_rotation"`
}

type CookieSettings struct {
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
	Domain   string `mapstructure:"domain"`
	Secure   bool   `mapstructure:"secure"`
	SameSite string `mapstructure:"same_site"` // lax, strict or none
}

type AuditSettings struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

type MetricsSettings struct {
	Enabled           bool `mapstructure:"enabled"`
	LatencyHistograms bool `mapstructure:"latency_histograms"`
	Prometheus        bool `mapstructure:"prometheus"`
}

type RedisSettings struct {
	Addrs        []string      `mapstructure:"addrs"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Retry        RetrySettings `mapstructure:"retry"`
}

type RetrySettings struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxRetries    uint64        `mapstructure:"max_retries"`
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	JitterPercent uint64        `mapstructure:"jitter_percent"`
}

// UserSettings seeds the credential directory. PasswordHash (argon2id PHC) is preferred;
// Password is hashed at startup and is meant for local development only.
type UserSettings struct {
	ID           int64  `mapstructure:"id"`
	Email        string `mapstructure:"email"`
	Role         string `mapstructure:"role"`
	PasswordHash string `mapstructure:"password_hash"`
	Password     string `mapstructure:"password"`
}

func setDefaults(v *viper.Viper) {
	def := goSession.DefaultConfig()
	logDef := logging.DefaultConfig()
	hashDef := credentials.DefaultHashConfig()
	retryDef := store.DefaultRetryConfig()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", def.JWT.Issuer)
	v.SetDefault("jwt.audience", def.JWT.Audience)
	v.SetDefault("jwt.access_ttl", def.JWT.AccessTTL)
	v.SetDefault("jwt.refresh_ttl", def.JWT.RefreshTTL)
	v.SetDefault("jwt.leeway", def.JWT.Leeway)

	v.SetDefault("session.key_namespace", def.Session.KeyNamespace)
	v.SetDefault("session.strict_rotation", def.Session.StrictRotation)

	v.SetDefault("cookie.name", def.Cookie.Name)
	v.SetDefault("cookie.path", def.Cookie.Path)
	v.SetDefault("cookie.domain", def.Cookie.Domain)
	v.SetDefault("cookie.secure", def.Cookie.Secure)
	v.SetDefault("cookie.same_site", "lax")

	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("audit.buffer_size", def.Audit.BufferSize)
	v.SetDefault("audit.drop_if_full", def.Audit.DropIfFull)

	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.latency_histograms", def.Metrics.EnableLatencyHistograms)
	v.SetDefault("metrics.prometheus", true)

	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 0)
	v.SetDefault("redis.dial_timeout", 2*time.Second)
	v.SetDefault("redis.read_timeout", 500*time.Millisecond)
	v.SetDefault("redis.write_timeout", 500*time.Millisecond)
	v.SetDefault("redis.retry.enabled", true)
	v.SetDefault("redis.retry.max_retries", retryDef.MaxRetries)
	v.SetDefault("redis.retry.base_delay", retryDef.BaseDelay)
	v.SetDefault("redis.retry.max_delay", retryDef.MaxDelay)
	v.SetDefault("redis.retry.jitter_percent", retryDef.JitterPercent)

	v.SetDefault("logging.level", logDef.Level)
	v.SetDefault("logging.format", logDef.Format)
	v.SetDefault("logging.file", logDef.File)
	v.SetDefault("logging.max_size_mb", logDef.MaxSizeMB)
	v.SetDefault("logging.max_backups", logDef.MaxBackups)
	v.SetDefault("logging.max_age_days", logDef.MaxAgeDays)
	v.SetDefault("logging.compress", logDef.Compress)

	v.SetDefault("password.memory", hashDef.Memory)
	v.SetDefault("password.time", hashDef.Time)
	v.SetDefault("password.parallelism", hashDef.Parallelism)
	v.SetDefault("password.salt_length", hashDef.SaltLength)
	v.SetDefault("password.key_length", hashDef.KeyLength)
}

// Load reads settings. An empty path searches ./sessiond.yaml and /etc/gosession/; a
// missing file is not an error, an explicit path that cannot be read is.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("sessiond")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/gosession/")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &s, nil
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	default:
		return 0, fmt.Errorf("invalid cookie same_site %q", s)
	}
}

// EngineConfig converts s to a validated engine configuration.
func (s *Settings) EngineConfig() (goSession.Config, error) {
	sameSite, err := parseSameSite(s.Cookie.SameSite)
	if err != nil {
		return goSession.Config{}, err
	}
	cfg := goSession.Config{
		JWT: goSession.JWTConfig{
			AccessTTL:  s.JWT.AccessTTL,
			RefreshTTL: s.JWT.RefreshTTL,
			Secret:     []byte(s.JWT.Secret),
			Issuer:     s.JWT.Issuer,
			Audience:   s.JWT.Audience,
			Leeway:     s.JWT.Leeway,
		},
		Session: goSession.SessionConfig{
			KeyNamespace:   s.Session.KeyNamespace,
			StrictRotation: s.Session.StrictRotation,
		},
		Cookie: goSession.CookieConfig{
			Name:     s.Cookie.Name,
			Path:     s.Cookie.Path,
			Domain:   s.Cookie.Domain,
			Secure:   s.Cookie.Secure,
			SameSite: sameSite,
		},
		Audit: goSession.AuditConfig{
			Enabled:    s.Audit.Enabled,
			BufferSize: s.Audit.BufferSize,
			DropIfFull: s.Audit.DropIfFull,
		},
		Metrics: goSession.MetricsConfig{
			Enabled:                 s.Metrics.Enabled,
			EnableLatencyHistograms: s.Metrics.LatencyHistograms,
		},
	}
	if err := cfg.Validate(); err != nil {
		return goSession.Config{}, err
	}
	return cfg, nil
}

// RedisOptions returns client options. More than one address selects a cluster client.
func (s *Settings) RedisOptions() *redis.UniversalOptions {
	return &redis.UniversalOptions{
		Addrs:        s.Redis.Addrs,
		Username:     s.Redis.Username,
		Password:     s.Redis.Password,
		DB:           s.Redis.DB,
		PoolSize:     s.Redis.PoolSize,
		DialTimeout:  s.Redis.DialTimeout,
		ReadTimeout:  s.Redis.ReadTimeout,
		WriteTimeout: s.Redis.WriteTimeout,
	}
}

// RetryConfig returns the store retry policy, or false when retries are disabled.
func (s *Settings) RetryConfig() (store.RetryConfig, bool) {
	r := s.Redis.Retry
	return store.RetryConfig{
		MaxRetries:    r.MaxRetries,
		BaseDelay:     r.BaseDelay,
		MaxDelay:      r.MaxDelay,
		JitterPercent: r.JitterPercent,
	}, r.Enabled
}

// Directory builds the credential directory from the seeded users.
func (s *Settings) Directory() (*credentials.Directory, error) {
	hasher, err := credentials.NewArgon2(s.Password)
	if err != nil {
		return nil, err
	}
	dir, err := credentials.NewDirectory(hasher)
	if err != nil {
		return nil, err
	}
	for i, u := range s.Users {
		role := goSession.Role(u.Role)
		switch {
		case u.PasswordHash != "":
			err = dir.Add(credentials.User{ID: u.ID, Email: u.Email, Role: role, PasswordHash: u.PasswordHash})
		case u.Password != "":
			err = dir.AddWithPassword(u.ID, u.Email, role, u.Password)
		default:
			err = errors.New("password_hash or password required")
		}
		if err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
	}
	return dir, nil
}
