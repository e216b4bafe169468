package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"shortcircuit/internal/navigation"
)

// TripwireConfig holds the credentials for a Tripwire server.
type TripwireConfig struct {
	URL            string  `json:"url" toml:"url"`
	Username       string  `json:"username" toml:"username"`
	Password       string  `json:"-" toml:"password"`
	TimeoutSeconds float64 `json:"timeout_seconds" toml:"timeout_seconds"`
}

// Enabled reports whether enough is configured to log in.
func (t TripwireConfig) Enabled() bool {
	return t.URL != "" && t.Username != ""
}

func (t TripwireConfig) Timeout() time.Duration { return seconds(t.TimeoutSeconds) }

// EveScoutConfig controls the public Thera feed.
type EveScoutConfig struct {
	Enabled        bool    `json:"enabled" toml:"enabled"`
	URL            string  `json:"url" toml:"url"`
	TimeoutSeconds float64 `json:"timeout_seconds" toml:"timeout_seconds"`
}

func (e EveScoutConfig) Timeout() time.Duration { return seconds(e.TimeoutSeconds) }

// Config holds application settings.
type Config struct {
	Listen         string               `json:"listen" toml:"listen"`
	DataDir        string               `json:"data_dir" toml:"data_dir"`
	RefreshMinutes int                  `json:"refresh_minutes" toml:"refresh_minutes"` // 0 = manual only
	CheckVersion   bool                 `json:"check_version" toml:"check_version"`
	VersionURL     string               `json:"version_url" toml:"version_url"`
	Tripwire       TripwireConfig       `json:"tripwire" toml:"tripwire"`
	EveScout       EveScoutConfig       `json:"evescout" toml:"evescout"`
	Risk           navigation.RiskTable `json:"risk" toml:"risk"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:       "127.0.0.1:13370",
		DataDir:      "data",
		CheckVersion: true,
		Tripwire: TripwireConfig{
			URL:            "https://tripwire.eve-apps.com",
			TimeoutSeconds: 5,
		},
		EveScout: EveScoutConfig{
			Enabled:        true,
			TimeoutSeconds: 2,
		},
		Risk: navigation.DefaultRisk(),
	}
}

// Load builds the configuration from defaults, the TOML file at path (if path
// is not empty), a .env file in the working directory and SHORTCIRCUIT_*
// environment variables, in that order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be corrected silently.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("config: listen address is empty")
	}
	if c.RefreshMinutes < 0 {
		return fmt.Errorf("config: refresh_minutes must be >= 0, got %d", c.RefreshMinutes)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RefreshInterval is the auto-refresh period, or zero when disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"SHORTCIRCUIT_LISTEN":            &c.Listen,
		"SHORTCIRCUIT_DATA_DIR":          &c.DataDir,
		"SHORTCIRCUIT_TRIPWIRE_URL":      &c.Tripwire.URL,
		"SHORTCIRCUIT_TRIPWIRE_USER":     &c.Tripwire.Username,
		"SHORTCIRCUIT_TRIPWIRE_PASSWORD": &c.Tripwire.Password,
		"SHORTCIRCUIT_EVESCOUT_URL":      &c.EveScout.URL,
		"SHORTCIRCUIT_VERSION_URL":       &c.VersionURL,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	if v := envOrDefault("SHORTCIRCUIT_REFRESH_MINUTES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: SHORTCIRCUIT_REFRESH_MINUTES: %w", err)
		}
		c.RefreshMinutes = n
	}
	bools := map[string]*bool{
		"SHORTCIRCUIT_EVESCOUT":      &c.EveScout.Enabled,
		"SHORTCIRCUIT_CHECK_VERSION": &c.CheckVersion,
	}
	for key, dst := range bools {
		if v := envOrDefault(key, ""); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("config: %s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
