package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"finitefield.org/inn-kiosk/internal/idle"
)

// Settings is the process configuration, read from KIOSK_* environment variables.
type Settings struct {
	HTTPAddr      string        `env:"KIOSK_HTTP_ADDR" envDefault:":8080"`
	ConfigSource  string        `env:"KIOSK_CONFIG_SOURCE" envDefault:"config.json"`
	FetchTimeout  time.Duration `env:"KIOSK_FETCH_TIMEOUT" envDefault:"10s"`
	IdleTimeout   time.Duration `env:"KIOSK_IDLE_TIMEOUT" envDefault:"3m"`
	IdlePolicy    string        `env:"KIOSK_IDLE_POLICY" envDefault:"reconcile"`
	PulseInterval time.Duration `env:"KIOSK_PULSE_INTERVAL" envDefault:"30s"`
	WakeInhibit   bool          `env:"KIOSK_WAKE_INHIBIT" envDefault:"true"`
	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	Dev           bool          `env:"KIOSK_DEV"`
	TemplatesDir  string        `env:"KIOSK_TEMPLATES_DIR" envDefault:"public/templates"`
}

// Load reads settings from the process environment.
func Load() (Settings, error) {
	return parse(env.Options{})
}

// LoadFrom reads settings from the given variables only.
func LoadFrom(vars map[string]string) (Settings, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Settings, error) {
	var s Settings
	if err := env.ParseWithOptions(&s, opts); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	s.ConfigSource = strings.TrimSpace(s.ConfigSource)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Policy returns the parsed idle policy.
func (s Settings) Policy() idle.Policy {
	p, err := idle.ParsePolicy(s.IdlePolicy)
	if err != nil {
		return idle.PolicyReconcile
	}
	return p
}

// Validate reports every invalid setting at once.
func (s Settings) Validate() error {
	var errs []error
	if s.ConfigSource == "" {
		errs = append(errs, errors.New("KIOSK_CONFIG_SOURCE is required"))
	}
	if s.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("KIOSK_IDLE_TIMEOUT must be positive, got %s", s.IdleTimeout))
	}
	if s.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("KIOSK_FETCH_TIMEOUT must not be negative, got %s", s.FetchTimeout))
	}
	if s.PulseInterval <= 0 {
		errs = append(errs, fmt.Errorf("KIOSK_PULSE_INTERVAL must be positive, got %s", s.PulseInterval))
	}
	if _, err := idle.ParsePolicy(s.IdlePolicy); err != nil {
		errs = append(errs, fmt.Errorf("KIOSK_IDLE_POLICY: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid settings: %w", errors.Join(errs...))
	}
	return nil
}
