// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Host      string `env:"HOST,default=0.0.0.0"`
	Port      int    `env:"PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel  string `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT,default=text" validate:"oneof=text json"`

	SweepInterval   time.Duration `env:"SWEEP_INTERVAL,default=30s" validate:"gt=0s"`
	IdleGrace       time.Duration `env:"IDLE_GRACE,default=0s" validate:"gte=0s"`
	ResponseTimeout time.Duration `env:"RESPONSE_TIMEOUT,default=10s" validate:"gt=0s"`
	SendBuffer      int           `env:"SEND_BUFFER,default=256" validate:"gt=0"`

	AuditFile         string `env:"AUDIT_FILE,default=logs.json"`
	AuditRedisAddr    string `env:"AUDIT_REDIS_ADDR"`
	AuditRedisChannel string `env:"AUDIT_REDIS_CHANNEL,default=classcast:audit" validate:"required_with=AuditRedisAddr"`
	AuditBuffer       int    `env:"AUDIT_BUFFER,default=1024" validate:"gt=0"`

	StaticDir       string        `env:"STATIC_DIR,default=public"`
	CORSAllow       string        `env:"CORS_ALLOW,default=*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0s"`
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedOrigins splits CORS_ALLOW on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllow, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads .env files if present, then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnviron(os.Environ())
}

// FromEnviron parses a KEY=value list such as os.Environ().
func FromEnviron(environ []string) (Config, error) {
	es, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
