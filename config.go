package respondentgate

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// PolicyConfig tunes the brute-force attempt limiter.
type PolicyConfig struct {
	// MaxAttempts is the per-client failure budget. The limiter blocks one
	// attempt early; see internal/rate.
	MaxAttempts int
	// AttemptTTL is the sliding cooldown, restarted on every failure.
	AttemptTTL time.Duration
	// KeyPrefix namespaces attempt counters in the shared store.
	KeyPrefix string
}

// TokenConfig tunes the issued session token.
type TokenConfig struct {
	// KeyID identifies the signing key to the questionnaire service.
	KeyID string
	// Validity is the token lifetime; exp is always iat plus this window.
	Validity time.Duration
}

// EQConfig locates the downstream questionnaire service the launch URL
// points at.
type EQConfig struct {
	Protocol string
	Host     string
	Port     int
}

// LookupConfig locates the IAC service resolving codes to cases.
type LookupConfig struct {
	Protocol string
	Host     string
	Port     int
	Username string
	Password string
	// Timeout bounds one lookup round trip; on expiry the request fails
	// with ErrDependencyTimeout rather than hanging.
	Timeout time.Duration
}

// BaseURL renders the service root, e.g. "http://iacsvc:8121".
func (c LookupConfig) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Protocol, c.Host, c.Port)
}

// Config is the full gateway configuration. Treat instances as immutable
// after Build.
type Config struct {
	Policy PolicyConfig
	Token  TokenConfig
	EQ     EQConfig
	Lookup LookupConfig
}

// DefaultConfig returns the reference policy: a budget of ten attempts with
// a twenty-second sliding cooldown, and one-hour tokens signed as EDCRRM.
func DefaultConfig() Config {
	return Config{
		Policy: PolicyConfig{
			MaxAttempts: 10,
			AttemptTTL:  20 * time.Second,
			KeyPrefix:   "att:",
		},
		Token: TokenConfig{
			KeyID:    "EDCRRM",
			Validity: time.Hour,
		},
		EQ: EQConfig{
			Protocol: "https",
			Host:     "localhost",
			Port:     5000,
		},
		Lookup: LookupConfig{
			Protocol: "http",
			Host:     "localhost",
			Port:     8121,
			Timeout:  10 * time.Second,
		},
	}
}

// Validate rejects configurations the gate cannot run with.
func (c Config) Validate() error {
	if c.Policy.MaxAttempts < 2 {
		return errors.New("policy MaxAttempts must be at least 2")
	}
	if c.Policy.AttemptTTL <= 0 {
		return errors.New("policy AttemptTTL must be positive")
	}
	if c.Token.KeyID == "" {
		return errors.New("token KeyID required")
	}
	if c.Token.Validity <= 0 {
		return errors.New("token Validity must be positive")
	}
	if c.EQ.Protocol == "" || c.EQ.Host == "" || c.EQ.Port <= 0 {
		return errors.New("eq service location incomplete")
	}
	if c.Lookup.Timeout <= 0 {
		return errors.New("lookup Timeout must be positive")
	}
	return nil
}

// ConfigFromEnv loads configuration from RESPONDENT_GATE_* environment
// variables, reading a .env file first when one is present. Unset variables
// keep their DefaultConfig values.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	cfg.Policy.MaxAttempts = getEnvAsInt("RESPONDENT_GATE_MAX_ATTEMPTS", cfg.Policy.MaxAttempts)
	cfg.Policy.AttemptTTL = getEnvAsSeconds("RESPONDENT_GATE_ATTEMPT_TTL_SECONDS", cfg.Policy.AttemptTTL)

	cfg.Token.KeyID = getEnv("RESPONDENT_GATE_KEY_ID", cfg.Token.KeyID)
	cfg.Token.Validity = getEnvAsSeconds("RESPONDENT_GATE_TOKEN_VALIDITY_SECONDS", cfg.Token.Validity)

	cfg.EQ.Protocol = getEnv("RESPONDENT_GATE_EQ_PROTOCOL", cfg.EQ.Protocol)
	cfg.EQ.Host = getEnv("RESPONDENT_GATE_EQ_HOST", cfg.EQ.Host)
	cfg.EQ.Port = getEnvAsInt("RESPONDENT_GATE_EQ_PORT", cfg.EQ.Port)

	cfg.Lookup.Protocol = getEnv("RESPONDENT_GATE_IAC_SERVICE_PROTOCOL", cfg.Lookup.Protocol)
	cfg.Lookup.Host = getEnv("RESPONDENT_GATE_IAC_SERVICE_HOST", cfg.Lookup.Host)
	cfg.Lookup.Port = getEnvAsInt("RESPONDENT_GATE_IAC_SERVICE_PORT", cfg.Lookup.Port)
	cfg.Lookup.Username = getEnv("RESPONDENT_GATE_IAC_SERVICE_USER", cfg.Lookup.Username)
	cfg.Lookup.Password = getEnv("RESPONDENT_GATE_IAC_SERVICE_PASSWORD", cfg.Lookup.Password)
	cfg.Lookup.Timeout = getEnvAsSeconds("RESPONDENT_GATE_LOOKUP_TIMEOUT_SECONDS", cfg.Lookup.Timeout)

	return cfg
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return time.Duration(value) * time.Second
}
