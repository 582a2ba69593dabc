package idrelay

import (
	"time"

	"github.com/MrEthical07/idrelay/internal/rate"
	"github.com/MrEthical07/idrelay/revocation"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Builder assembles a Relay. A Builder can be used for one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	provider  Provider
	limiter   AttemptLimiter
	denylist  Denylist
	auditSink AuditSink
	logger    *zerolog.Logger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the identity provider used by BeginLogin and CompleteLogin.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithRedis sets the client backing the login limiter and, when enabled, the
// revocation denylist.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithLimiter overrides the login attempt limiter.
func (b *Builder) WithLimiter(l AttemptLimiter) *Builder {
	b.limiter = l
	return b
}

// WithDenylist overrides the revocation denylist. It is only consulted when
// Config.Revocation.Enabled is set.
func (b *Builder) WithDenylist(d Denylist) *Builder {
	b.denylist = d
	return b
}

// WithAuditSink sets where audit events go when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for backend failures. The default discards.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// WithClock overrides time.Now. Tests use it to pin issuance and verification.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the verify latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Relay. Every failure
// wraps ErrConfiguration.
func (b *Builder) Build() (*Relay, error) {
	if b.built {
		return nil, configError("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	issuer, err := NewIssuer(cfg.Credential)
	if err != nil {
		return nil, err
	}
	verifier, err := NewVerifier(cfg.Credential)
	if err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if b.logger != nil {
		log = *b.logger
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	relay := &Relay{
		config:    cfg,
		issuer:    issuer,
		verifier:  verifier,
		transport: NewTransport(cfg.Cookie),
		provider:  b.provider,
		metrics:   NewMetrics(cfg.Metrics),
		log:       log,
		now:       now,
	}

	// -------- REVOCATION --------
	if cfg.Revocation.Enabled {
		switch {
		case b.denylist != nil:
			relay.denylist = b.denylist
		case b.redis != nil:
			relay.denylist = revocation.NewRedisDenylist(b.redis, cfg.Revocation.RedisPrefix)
		default:
			return nil, configError("Revocation requires a redis client or denylist")
		}
	}

	// -------- LOGIN LIMITER --------
	rateCfg := rate.Config{
		MaxAttempts: cfg.Login.MaxAttempts,
		Window:      cfg.Login.AttemptWindow,
	}
	switch {
	case b.limiter != nil:
		relay.limiter = b.limiter
	case b.redis != nil:
		relay.limiter = rate.NewRedis(b.redis, rateCfg)
	default:
		mem := rate.NewMemory(rateCfg)
		relay.limiter = mem
		relay.closers = append(relay.closers, mem.Stop)
	}

	relay.audit = newAuditDispatcher(cfg.Audit, b.auditSink, log)

	b.built = true

	return relay, nil
}
