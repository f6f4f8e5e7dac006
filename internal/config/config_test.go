package config

import (
	"testing"
	"time"

	"github.com/sweeney/rokoko-bridge/internal/rokoko"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.StudioHost != "127.0.0.1" {
		t.Errorf("StudioHost: got %q", cfg.StudioHost)
	}
	if cfg.StudioPort != 14053 {
		t.Errorf("StudioPort: got %d", cfg.StudioPort)
	}
	if cfg.APIKey != "1234" {
		t.Errorf("APIKey: got %q", cfg.APIKey)
	}
	if cfg.CalibrateButton != 3 || cfg.StartButton != 0 || cfg.StopButton != 1 {
		t.Errorf("buttons: got calibrate=%d start=%d stop=%d", cfg.CalibrateButton, cfg.StartButton, cfg.StopButton)
	}
	if cfg.Debounce != 5*time.Second {
		t.Errorf("Debounce: got %v", cfg.Debounce)
	}
	if cfg.ProbeInterval != 3*time.Second {
		t.Errorf("ProbeInterval: got %v", cfg.ProbeInterval)
	}
	if cfg.PollInterval != 10*time.Millisecond {
		t.Errorf("PollInterval: got %v", cfg.PollInterval)
	}
	if cfg.HTTPAddr != ":8459" {
		t.Errorf("HTTPAddr: got %q", cfg.HTTPAddr)
	}
	if cfg.Broker != "" {
		t.Errorf("Broker: got %q, want empty (MQTT off by default)", cfg.Broker)
	}
	if cfg.TopicPrefix != "rokoko/bridge" {
		t.Errorf("TopicPrefix: got %q", cfg.TopicPrefix)
	}
	if cfg.WaitController {
		t.Error("WaitController: got true, want false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ROKOKO_STUDIO_HOST", "192.168.1.50")
	t.Setenv("ROKOKO_STUDIO_PORT", "15000")
	t.Setenv("ROKOKO_DEBOUNCE", "2s")
	t.Setenv("ROKOKO_WAIT_CONTROLLER", "true")

	cfg, err := Load("test", nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.StudioHost != "192.168.1.50" {
		t.Errorf("StudioHost: got %q", cfg.StudioHost)
	}
	if cfg.StudioPort != 15000 {
		t.Errorf("StudioPort: got %d", cfg.StudioPort)
	}
	if cfg.Debounce != 2*time.Second {
		t.Errorf("Debounce: got %v", cfg.Debounce)
	}
	if !cfg.WaitController {
		t.Error("WaitController: got false, want true")
	}
	// Untouched fields keep their defaults.
	if cfg.APIKey != "1234" {
		t.Errorf("APIKey: got %q", cfg.APIKey)
	}
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("ROKOKO_DEBOUNCE", "2s")
	t.Setenv("ROKOKO_MQTT_BROKER", "tcp://env-broker:1883")

	cfg, err := Load("test", []string{"-debounce", "7s", "-broker", "tcp://flag-broker:1883"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Debounce != 7*time.Second {
		t.Errorf("Debounce: got %v, want 7s (flag should win)", cfg.Debounce)
	}
	if cfg.Broker != "tcp://flag-broker:1883" {
		t.Errorf("Broker: got %q, want flag value", cfg.Broker)
	}
}

func TestLoadUnknownFlag(t *testing.T) {
	if _, err := Load("test", []string{"-no-such-flag"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestLoadBadEnvValue(t *testing.T) {
	t.Setenv("ROKOKO_STUDIO_PORT", "not-a-port")

	if _, err := Load("test", nil); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestAddr(t *testing.T) {
	cfg := Defaults()
	if got := cfg.Addr(); got != "127.0.0.1:14053" {
		t.Errorf("Addr: got %q", got)
	}

	cfg.StudioHost = "studio.local"
	cfg.StudioPort = 9000
	if got := cfg.Addr(); got != "studio.local:9000" {
		t.Errorf("Addr: got %q", got)
	}
}

func TestMapping(t *testing.T) {
	cfg := Defaults()

	m, err := cfg.Mapping()
	if err != nil {
		t.Fatalf("Mapping returned error: %v", err)
	}
	if len(m) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(m))
	}
	if m[3] != rokoko.ActionCalibrate {
		t.Errorf("button 3: got %s", m[3])
	}
	if m[0] != rokoko.ActionStartRecording {
		t.Errorf("button 0: got %s", m[0])
	}
	if m[1] != rokoko.ActionStopRecording {
		t.Errorf("button 1: got %s", m[1])
	}
}

func TestMappingRejectsDuplicateButtons(t *testing.T) {
	cfg := Defaults()
	cfg.StartButton = cfg.CalibrateButton

	if _, err := cfg.Mapping(); err == nil {
		t.Error("expected error when two actions share a button")
	}
}

func TestSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Broker = "tcp://broker:1883"

	s := cfg.Settings()

	if s.StudioAddr != "127.0.0.1:14053" {
		t.Errorf("StudioAddr: got %q", s.StudioAddr)
	}
	if s.DebounceMs != 5000 {
		t.Errorf("DebounceMs: got %d", s.DebounceMs)
	}
	if s.ProbeMs != 3000 {
		t.Errorf("ProbeMs: got %d", s.ProbeMs)
	}
	if s.PollMs != 10 {
		t.Errorf("PollMs: got %d", s.PollMs)
	}
	if s.Broker != "tcp://broker:1883" {
		t.Errorf("Broker: got %q", s.Broker)
	}
	if len(s.Mapping) != 3 {
		t.Fatalf("expected 3 mapping entries, got %d", len(s.Mapping))
	}
	// Display order is fixed: calibrate, start, stop.
	if s.Mapping[0].Action != rokoko.ActionCalibrate || s.Mapping[0].Button != 3 {
		t.Errorf("entry 0: got %+v", s.Mapping[0])
	}
	if s.Mapping[1].Action != rokoko.ActionStartRecording || s.Mapping[1].Button != 0 {
		t.Errorf("entry 1: got %+v", s.Mapping[1])
	}
	if s.Mapping[2].Action != rokoko.ActionStopRecording || s.Mapping[2].Button != 1 {
		t.Errorf("entry 2: got %+v", s.Mapping[2])
	}
}
