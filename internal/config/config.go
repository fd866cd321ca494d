// Package config loads the daemon configuration: an optional
// followup.yaml next to the binary, overridden by FOLLOWUP_* environment
// variables. The Slack token is env-only and never read from the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is fixed at startup; nothing here is runtime-mutable.
type Config struct {
	MonitoredChannel   string
	AlertsChannel      string
	CheckIntervalHours float64
	CheckSchedule      string
	CheckmarkEmoji     string
	CheckedEmoji       string
	MetricsAddr        string
	SlackToken         string
}

// Defaults mirror the channel setup this bot was written for.
const (
	defaultMonitoredChannel = "#enterprise-customers-followup"
	defaultAlertsChannel    = "#ip_reminder"
	defaultIntervalHours    = 6.0
	defaultCheckmarkEmoji   = "white_check_mark"
	defaultCheckedEmoji     = "eyes"
)

// Load reads the configuration. A missing config file is fine; a missing
// Slack token or malformed value is not.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("followup")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/followup")

	v.SetDefault("monitored_channel", defaultMonitoredChannel)
	v.SetDefault("alerts_channel", defaultAlertsChannel)
	v.SetDefault("check_interval_hours", defaultIntervalHours)
	v.SetDefault("check_schedule", "")
	v.SetDefault("checkmark_emoji", defaultCheckmarkEmoji)
	v.SetDefault("checked_emoji", defaultCheckedEmoji)
	v.SetDefault("metrics_addr", "")

	v.SetEnvPrefix("FOLLOWUP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		MonitoredChannel:   v.GetString("monitored_channel"),
		AlertsChannel:      v.GetString("alerts_channel"),
		CheckIntervalHours: v.GetFloat64("check_interval_hours"),
		CheckSchedule:      v.GetString("check_schedule"),
		CheckmarkEmoji:     strings.TrimSpace(v.GetString("checkmark_emoji")),
		CheckedEmoji:       strings.TrimSpace(v.GetString("checked_emoji")),
		MetricsAddr:        v.GetString("metrics_addr"),
		SlackToken:         os.Getenv("SLACK_TOKEN"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SlackToken == "" {
		return fmt.Errorf("SLACK_TOKEN is not set")
	}
	if c.MonitoredChannel == "" {
		return fmt.Errorf("monitored_channel must not be empty")
	}
	if c.AlertsChannel == "" {
		return fmt.Errorf("alerts_channel must not be empty")
	}
	if c.CheckSchedule == "" && c.CheckIntervalHours <= 0 {
		return fmt.Errorf("check_interval_hours must be positive, got %v", c.CheckIntervalHours)
	}
	if c.CheckmarkEmoji == "" || c.CheckedEmoji == "" {
		return fmt.Errorf("reaction emoji names must not be empty")
	}
	return nil
}

// CheckInterval converts the fractional hour setting to a duration.
func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.CheckIntervalHours * float64(time.Hour))
}
