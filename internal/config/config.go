// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Env               string
	Addr              string
	DBPath            string
	JWTSecret         string
	MongoURI          string
	MongoDB           string
	MirrorTimeout     time.Duration
	RelayInterval     time.Duration
	RelayMaxAttempts  int
	StrictTransitions bool
	PublicURL         string
	LogPath           string
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Env:              "production",
		Addr:             ":8080",
		DBPath:           "elderaid.sqlite3",
		MongoDB:          "elderaid",
		MirrorTimeout:    5 * time.Second,
		RelayInterval:    10 * time.Second,
		RelayMaxAttempts: 10,
		PublicURL:        "http://localhost:8080",
	}
}

// Load reads optional .env files and then the ELDERAID_* environment
// variables on top of Defaults.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, usually os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	c := Defaults()
	p := parser{getenv: getenv}

	p.str("ELDERAID_ENV", &c.Env)
	p.str("ELDERAID_ADDR", &c.Addr)
	p.str("ELDERAID_DB", &c.DBPath)
	p.str("ELDERAID_JWT_SECRET", &c.JWTSecret)
	p.str("ELDERAID_MONGO_URI", &c.MongoURI)
	p.str("ELDERAID_MONGO_DB", &c.MongoDB)
	p.duration("ELDERAID_MIRROR_TIMEOUT", &c.MirrorTimeout)
	p.duration("ELDERAID_RELAY_INTERVAL", &c.RelayInterval)
	p.int("ELDERAID_RELAY_MAX_ATTEMPTS", &c.RelayMaxAttempts)
	p.bool("ELDERAID_STRICT_TRANSITIONS", &c.StrictTransitions)
	p.str("ELDERAID_PUBLIC_URL", &c.PublicURL)
	p.str("ELDERAID_LOG", &c.LogPath)

	if p.err != nil {
		return Config{}, p.err
	}
	return c, nil
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.MirrorTimeout <= 0 {
		errs = append(errs, fmt.Errorf("mirror timeout must be positive, got %s", c.MirrorTimeout))
	}
	if c.RelayInterval <= 0 {
		errs = append(errs, fmt.Errorf("relay interval must be positive, got %s", c.RelayInterval))
	}
	if c.RelayMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("relay max attempts must be positive, got %d", c.RelayMaxAttempts))
	}
	if c.MongoURI != "" && c.MongoDB == "" {
		errs = append(errs, errors.New("mongo database name is empty"))
	}
	if !strings.HasPrefix(c.PublicURL, "http://") && !strings.HasPrefix(c.PublicURL, "https://") {
		errs = append(errs, fmt.Errorf("public url %q must be http or https", c.PublicURL))
	}
	return errors.Join(errs...)
}

// Development reports whether the server runs in development mode.
func (c Config) Development() bool {
	return c.Env == "development" || c.Env == "dev"
}

type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key string, dst *string) {
	if v := strings.TrimSpace(p.getenv(key)); v != "" {
		*dst = v
	}
}

func (p *parser) duration(key string, dst *time.Duration) {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}

func (p *parser) int(key string, dst *int) {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) bool(key string, dst *bool) {
	v := strings.TrimSpace(p.getenv(key))
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = b
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s=%q: %w", key, value, err)
	}
}
