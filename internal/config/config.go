// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/and161185/totp-keeper/internal/crypto"
)

// Config holds every start-up setting of the server.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8443"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseDSN       string        `env:"DATABASE_DSN,required"`
	DBConnectAttempts uint64        `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
	DBConnectBackoff  time.Duration `env:"DB_CONNECT_BACKOFF" envDefault:"500ms"`

	JWTKey    string        `env:"JWT_KEY,required,unset"`
	AccessTTL time.Duration `env:"ACCESS_TTL" envDefault:"15m"`

	TLSCert string `env:"TLS_CERT" envDefault:"cert.pem"`
	TLSKey  string `env:"TLS_KEY" envDefault:"key.pem"`

	TOTPIssuer       string `env:"TOTP_ISSUER" envDefault:"totp-keeper"`
	TOTPSkew         uint   `env:"TOTP_SKEW" envDefault:"1"`
	EncryptionMethod string `env:"TOTP_ENCRYPTION_METHOD,required"`
	SecretKey        string `env:"TOTP_SECRET_KEY,required,unset"`

	LimiterWindow   time.Duration `env:"LIMITER_WINDOW" envDefault:"15m"`
	LimiterMaxFails int           `env:"LIMITER_MAX_FAILS" envDefault:"5"`
	LimiterBlockFor time.Duration `env:"LIMITER_BLOCK_FOR" envDefault:"15m"`
}

// Load reads an optional .env file (or the given files) and parses the environment.
func Load(files ...string) (Config, error) {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load(files...)
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	var errList []error
	if !strings.EqualFold(strings.TrimSpace(c.EncryptionMethod), crypto.AlgorithmAES256GCM) {
		errList = append(errList, fmt.Errorf("TOTP_ENCRYPTION_METHOD %q: %w", c.EncryptionMethod, crypto.ErrUnsupportedAlgorithm))
	}
	if c.SecretKey == "" {
		errList = append(errList, errors.New("TOTP_SECRET_KEY is empty"))
	}
	if c.JWTKey == "" {
		errList = append(errList, errors.New("JWT_KEY is empty"))
	}
	if c.AccessTTL <= 0 {
		errList = append(errList, errors.New("ACCESS_TTL must be positive"))
	}
	if c.LimiterMaxFails <= 0 {
		errList = append(errList, errors.New("LIMITER_MAX_FAILS must be positive"))
	}
	if len(errList) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errList...))
	}
	return nil
}
