// Package config loads bridge settings from defaults, .env, the environment
// and command line flags, in that order.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/sweeney/rokoko-bridge/internal/rokoko"
	"github.com/sweeney/rokoko-bridge/internal/status"
)

// Config holds everything the bridge binaries need to run.
type Config struct {
	StudioHost string `env:"ROKOKO_STUDIO_HOST"`
	StudioPort int    `env:"ROKOKO_STUDIO_PORT"`
	APIKey     string `env:"ROKOKO_API_KEY"`

	CalibrateButton int `env:"ROKOKO_BUTTON_CALIBRATE"`
	StartButton     int `env:"ROKOKO_BUTTON_START"`
	StopButton      int `env:"ROKOKO_BUTTON_STOP"`

	Debounce      time.Duration `env:"ROKOKO_DEBOUNCE"`
	ProbeInterval time.Duration `env:"ROKOKO_PROBE_INTERVAL"`
	PollInterval  time.Duration `env:"ROKOKO_POLL_INTERVAL"`

	HTTPAddr string `env:"ROKOKO_HTTP_ADDR"`

	Broker      string `env:"ROKOKO_MQTT_BROKER"`
	TopicPrefix string `env:"ROKOKO_MQTT_PREFIX"`

	WaitController bool `env:"ROKOKO_WAIT_CONTROLLER"`

	LogLevel  string `env:"ROKOKO_LOG_LEVEL"`
	LogFormat string `env:"ROKOKO_LOG_FORMAT"`
	LogFile   string `env:"ROKOKO_LOG_FILE"`
}

// Defaults match a stock Rokoko Studio install on the same machine and the
// button numbers of a PlayStation controller under the Linux joystick driver.
func Defaults() *Config {
	return &Config{
		StudioHost:      "127.0.0.1",
		StudioPort:      14053,
		APIKey:          "1234",
		CalibrateButton: 3,
		StartButton:     0,
		StopButton:      1,
		Debounce:        5 * time.Second,
		ProbeInterval:   3 * time.Second,
		PollInterval:    10 * time.Millisecond,
		HTTPAddr:        ":8459",
		Broker:          "",
		TopicPrefix:     "rokoko/bridge",
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load layers configuration: defaults, then a .env file if present, then
// environment variables, then flags. Later layers win.
func Load(name string, args []string) (*Config, error) {
	cfg := Defaults()

	_ = godotenv.Load()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.StudioHost, "studio-host", cfg.StudioHost, "Rokoko Studio host")
	fs.IntVar(&cfg.StudioPort, "studio-port", cfg.StudioPort, "Rokoko Studio Command API port")
	fs.StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Command API key")
	fs.IntVar(&cfg.CalibrateButton, "button-calibrate", cfg.CalibrateButton, "Button number that triggers calibration")
	fs.IntVar(&cfg.StartButton, "button-start", cfg.StartButton, "Button number that starts recording")
	fs.IntVar(&cfg.StopButton, "button-stop", cfg.StopButton, "Button number that stops recording")
	fs.DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "Minimum gap between dispatches of the same action")
	fs.DurationVar(&cfg.ProbeInterval, "probe", cfg.ProbeInterval, "Studio reachability probe interval")
	fs.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "Controller polling interval")
	fs.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&cfg.TopicPrefix, "topic-prefix", cfg.TopicPrefix, "MQTT topic prefix")
	fs.BoolVar(&cfg.WaitController, "wait-controller", cfg.WaitController, "Keep searching when no controller is attached at startup")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug|info|warn|error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (console|json)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Append JSON logs to this file instead of stderr")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the host:port the Command API and the reachability probe use.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.StudioHost, c.StudioPort)
}

// Mapping builds the button-to-action table. Assigning two actions to the
// same button would make a press ambiguous, so that is rejected here rather
// than silently collapsed.
func (c *Config) Mapping() (map[int]rokoko.Action, error) {
	m := map[int]rokoko.Action{
		c.CalibrateButton: rokoko.ActionCalibrate,
		c.StartButton:     rokoko.ActionStartRecording,
		c.StopButton:      rokoko.ActionStopRecording,
	}
	if len(m) != 3 {
		return nil, fmt.Errorf("buttons must be distinct: calibrate=%d start=%d stop=%d",
			c.CalibrateButton, c.StartButton, c.StopButton)
	}
	return m, nil
}

// Settings converts the config into the display form the status tracker serves.
func (c *Config) Settings() status.Settings {
	return status.Settings{
		StudioAddr: c.Addr(),
		DebounceMs: c.Debounce.Milliseconds(),
		ProbeMs:    c.ProbeInterval.Milliseconds(),
		PollMs:     c.PollInterval.Milliseconds(),
		HTTPAddr:   c.HTTPAddr,
		Broker:     c.Broker,
		Mapping: []status.MappingEntry{
			{Button: c.CalibrateButton, Action: rokoko.ActionCalibrate},
			{Button: c.StartButton, Action: rokoko.ActionStartRecording},
			{Button: c.StopButton, Action: rokoko.ActionStopRecording},
		},
	}
}
