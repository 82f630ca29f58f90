package settings

import (
	"strings"
	"testing"
	"time"

	"finitefield.org/inn-kiosk/internal/idle"
)

func TestDefaults(t *testing.T) {
	s, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.HTTPAddr != ":8080" || s.ConfigSource != "config.json" {
		t.Fatalf("unexpected defaults %+v", s)
	}
	if s.IdleTimeout != 3*time.Minute || s.PulseInterval != 30*time.Second {
		t.Fatalf("unexpected durations %s %s", s.IdleTimeout, s.PulseInterval)
	}
	if s.Policy() != idle.PolicyReconcile || !s.WakeInhibit || s.Dev {
		t.Fatalf("unexpected flags %+v", s)
	}
}

func TestOverrides(t *testing.T) {
	s, err := LoadFrom(map[string]string{
		"KIOSK_CONFIG_SOURCE": " https://example.test/config.json ",
		"KIOSK_IDLE_TIMEOUT":  "90s",
		"KIOSK_IDLE_POLICY":   "home",
		"KIOSK_DEV":           "true",
		"KIOSK_WAKE_INHIBIT":  "false",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.ConfigSource != "https://example.test/config.json" {
		t.Fatalf("source = %q", s.ConfigSource)
	}
	if s.IdleTimeout != 90*time.Second || s.Policy() != idle.PolicyHome || !s.Dev || s.WakeInhibit {
		t.Fatalf("unexpected settings %+v", s)
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"KIOSK_IDLE_TIMEOUT": "0s",
		"KIOSK_IDLE_POLICY":  "sometimes",
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "KIOSK_IDLE_TIMEOUT") || !strings.Contains(msg, "KIOSK_IDLE_POLICY") {
		t.Fatalf("expected both problems reported, got %v", err)
	}
}

func TestMalformedDuration(t *testing.T) {
	if _, err := LoadFrom(map[string]string{"KIOSK_FETCH_TIMEOUT": "soon"}); err == nil {
		t.Fatalf("expected parse error")
	}
}
