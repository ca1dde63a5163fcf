package goSession

import (
	"errors"
	"time"

	"github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/flows"
	"github.com/MrEthical07/goSession/jwt"
	"github.com/MrEthical07/goSession/store"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/MrEthical07/goSession"

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config

	store store.TokenStore
	redis redis.UniversalClient
	retry *store.RetryConfig

	credentials    CredentialVerifier
	auditSink      AuditSink
	logger         *zap.Logger
	tracerProvider trace.TracerProvider
	traceStore     bool
	now            func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the token store. It takes precedence over WithRedis.
func (b *Builder) WithStore(s store.TokenStore) *Builder {
	b.store = s
	return b
}

// WithRedis backs the engine with a [store.RedisStore] using Session.KeyNamespace.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStoreRetry wraps the store in [store.Retrying].
func (b *Builder) WithStoreRetry(cfg store.RetryConfig) *Builder {
	b.retry = &cfg
	return b
}

func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.credentials = v
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithTracerProvider sets the provider for engine spans and wraps the store in
// [store.Traced]. Without it the global provider is used for engine spans only.
func (b *Builder) WithTracerProvider(tp trace.TracerProvider) *Builder {
	b.tracerProvider = tp
	b.traceStore = tp != nil
	return b
}

// WithClock overrides the time source used for token timestamps and audit events.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- STORE --------
	st := b.store
	if st == nil {
		if b.redis == nil {
			return nil, errors.New("token store or redis client required")
		}
		st = store.NewRedisStore(b.redis, cfg.Session.KeyNamespace)
	}
	if b.retry != nil {
		st = store.NewRetrying(st, *b.retry)
	}
	if b.traceStore {
		st = store.NewTraced(st, b.tracerProvider)
	}
	var swapper store.Swapper
	if cfg.Session.StrictRotation {
		sw, ok := st.(store.Swapper)
		if !ok || !store.SupportsSwap(st) {
			return nil, errors.New("Session StrictRotation requires a store with compare-and-swap")
		}
		swapper = sw
	}

	// -------- CODEC --------
	codec, err := jwt.NewCodec(jwt.Config{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
		Now:      b.now,
	})
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tp := b.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	engine := &Engine{
		config:      cfg,
		codec:       codec,
		store:       st,
		credentials: b.credentials,
		metrics:     NewMetrics(cfg.Metrics),
		logger:      logger.Named("gosession"),
		tracer:      tp.Tracer(tracerName),
	}

	engine.flows = flows.Deps{
		Issue: flows.IssueDeps{
			Codec:      codec,
			Store:      st,
			AccessTTL:  cfg.JWT.AccessTTL,
			RefreshTTL: cfg.JWT.RefreshTTL,
		},
		Rotate: flows.RotateDeps{
			Codec:     codec,
			Store:     st,
			AccessTTL: cfg.JWT.AccessTTL,
			Swapper:   swapper,
		},
		EndSession: flows.EndSessionDeps{Codec: codec, Store: st},
		Authorize:  flows.AuthorizeDeps{Codec: codec, Store: st},
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		Now:        codec.Now,
	}, b.auditSink)

	b.built = true
	return engine, nil
}
