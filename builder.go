package respondentgate

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/censusops/respondentgate/internal/rate"
	"github.com/censusops/respondentgate/lookup"
	"github.com/censusops/respondentgate/token"
)

// Builder wires a [Gate] from its collaborators. Configure with the With*
// setters, then call Build once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  rate.AttemptStore
	finder lookup.Finder
	logger *slog.Logger

	privateKeyPEM []byte
	passphrase    string
	publicKeyPEM  []byte

	built bool
}

// New returns a builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis supplies the Redis client backing the attempt store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAttemptStore substitutes the attempt store directly, bypassing Redis.
// Intended for tests and alternative backends.
func (b *Builder) WithAttemptStore(store rate.AttemptStore) *Builder {
	b.store = store
	return b
}

// WithCaseFinder substitutes the case-lookup collaborator. When omitted,
// Build constructs the HTTP client from the Lookup config section.
func (b *Builder) WithCaseFinder(finder lookup.Finder) *Builder {
	b.finder = finder
	return b
}

// WithKeys supplies the PEM-encoded signing private key (with its
// passphrase, empty for unencrypted PEM) and the questionnaire service's
// public encryption key.
func (b *Builder) WithKeys(privateKeyPEM []byte, passphrase string, publicKeyPEM []byte) *Builder {
	b.privateKeyPEM = privateKeyPEM
	b.passphrase = passphrase
	b.publicKeyPEM = publicKeyPEM
	return b
}

// WithLogger replaces the default slog logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the configuration, parses key material, and returns a
// ready gate. Malformed keys fail here, not on the first request.
func (b *Builder) Build() (*Gate, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or attempt store required")
		}
		store = rate.NewRedisStore(b.redis)
	}

	finder := b.finder
	if finder == nil {
		if cfg.Lookup.Host == "" {
			return nil, errors.New("case finder or lookup config required")
		}
		finder = lookup.NewClient(lookup.ClientConfig{
			BaseURL:  cfg.Lookup.BaseURL(),
			Username: cfg.Lookup.Username,
			Password: cfg.Lookup.Password,
			Timeout:  cfg.Lookup.Timeout,
		})
	}

	if len(b.privateKeyPEM) == 0 || len(b.publicKeyPEM) == 0 {
		return nil, errors.New("signing and encryption keys required")
	}
	issuer, err := token.NewIssuer(cfg.Token.KeyID, b.privateKeyPEM, b.passphrase, b.publicKeyPEM)
	if err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	b.built = true

	return &Gate{
		config: cfg,
		limiter: rate.New(store, rate.Config{
			MaxAttempts: cfg.Policy.MaxAttempts,
			AttemptTTL:  cfg.Policy.AttemptTTL,
			KeyPrefix:   cfg.Policy.KeyPrefix,
		}),
		finder: finder,
		issuer: issuer,
		logger: logger,
	}, nil
}
