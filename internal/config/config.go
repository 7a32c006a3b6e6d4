// Package config holds the static application configuration loaded once
// at startup. It is a closed tagged record — every option recognised by
// the daemon has a field here; nothing is string-keyed at read time.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sensor describes one physical sensor mapped to a semantic channel.
type Sensor struct {
	ID           string `yaml:"id"`
	Channel      string `yaml:"channel"`
	Type         string `yaml:"type"`
	TriggerValue string `yaml:"trigger_value"`
}

// Model holds the routine-learner parameters.
type Model struct {
	SlotMinutes    int     `yaml:"slot_minutes"`
	AwakeStartHour int     `yaml:"awake_start_hour"`
	AwakeEndHour   int     `yaml:"awake_end_hour"`
	LearningDays   int     `yaml:"learning_days"`
	PriorAlpha     float64 `yaml:"prior_alpha"`
	PriorBeta      float64 `yaml:"prior_beta"`
}

// Alerts holds the anomaly-scoring and real-time-check thresholds.
type Alerts struct {
	ZThresholdGentle     float64 `yaml:"z_threshold_gentle"`
	ZThresholdSerious    float64 `yaml:"z_threshold_serious"`
	ZThresholdEmergency  float64 `yaml:"z_threshold_emergency"`
	MinTrainDays         int     `yaml:"min_train_days"`
	MorningCheckHour     int     `yaml:"morning_check_hour"`
	SilenceThresholdHrs  int     `yaml:"silence_threshold_hours"`
	FallDetectionMinutes int     `yaml:"fall_detection_minutes"`
}

// Messenger holds the outbound notifier configuration.
type Messenger struct {
	BotToken          string   `yaml:"bot_token"`
	ChatIDs           []string `yaml:"chat_ids"`
	EmergencyChatIDs  []string `yaml:"emergency_chat_ids"`
	EscalationMinutes int      `yaml:"escalation_minutes"`
}

// Heartbeat holds the VPS dead-man heartbeat configuration.
type Heartbeat struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	DeviceID        string `yaml:"device_id"`
	IntervalSeconds int    `yaml:"interval_seconds"`
}

// Database holds the embedded-store path and retention policy.
type Database struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Dashboard holds the web-dashboard basic-auth credentials.
type Dashboard struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// System holds seed/cross-cutting flags. VacationMode here is only the
// seed value — SystemState.vacation_mode in the store wins thereafter.
type System struct {
	VacationMode           bool    `yaml:"vacation_mode"`
	TrendAnalysisDays      int     `yaml:"trend_analysis_days"`
	TrendMinDays           int     `yaml:"trend_min_days"`
	TrendBathroomThreshold float64 `yaml:"trend_bathroom_threshold"`
	TrendPresenceThreshold float64 `yaml:"trend_presence_threshold"`
}

// MQTT holds the ingestion broker connection details (external collaborator).
type MQTT struct {
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// Config is the complete, immutable application configuration tree.
type Config struct {
	MQTT      MQTT      `yaml:"mqtt"`
	Sensors   []Sensor  `yaml:"sensors"`
	Model     Model     `yaml:"model"`
	Alerts    Alerts    `yaml:"alerts"`
	Messenger Messenger `yaml:"telegram"`
	Heartbeat Heartbeat `yaml:"heartbeat"`
	Database  Database  `yaml:"database"`
	Dashboard Dashboard `yaml:"dashboard"`
	System    System    `yaml:"system"`
}

// DefaultChannels is used whenever no sensors are configured.
var DefaultChannels = []string{"presence", "fridge", "bathroom", "door"}

// Channels returns the configured semantic channel set, falling back to
// DefaultChannels when no sensors are listed.
func (c *Config) Channels() []string {
	if len(c.Sensors) == 0 {
		return append([]string(nil), DefaultChannels...)
	}
	seen := make(map[string]bool)
	var out []string
	for _, s := range c.Sensors {
		if s.Channel == "" || seen[s.Channel] {
			continue
		}
		seen[s.Channel] = true
		out = append(out, s.Channel)
	}
	if len(out) == 0 {
		return append([]string(nil), DefaultChannels...)
	}
	return out
}

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		MQTT: MQTT{
			Broker:      "localhost",
			Port:        1883,
			TopicPrefix: "zigbee2mqtt",
		},
		Model: Model{
			SlotMinutes:    15,
			AwakeStartHour: 6,
			AwakeEndHour:   23,
			LearningDays:   14,
			PriorAlpha:     1.0,
			PriorBeta:      1.0,
		},
		Alerts: Alerts{
			ZThresholdGentle:     2.0,
			ZThresholdSerious:    3.0,
			ZThresholdEmergency:  4.0,
			MinTrainDays:         7,
			MorningCheckHour:     11,
			SilenceThresholdHrs:  3,
			FallDetectionMinutes: 45,
		},
		Messenger: Messenger{
			EscalationMinutes: 10,
		},
		Heartbeat: Heartbeat{
			DeviceID:        "annem-pi",
			IntervalSeconds: 300,
		},
		Database: Database{
			Path:          "./data/annem_guvende.db",
			RetentionDays: 90,
		},
		System: System{
			TrendAnalysisDays:      30,
			TrendMinDays:           14,
			TrendBathroomThreshold: 0.3,
			TrendPresenceThreshold: -0.3,
		},
	}
}

const (
	defaultConfigPath  = "config.yml"
	fallbackConfigPath = "config.yml.example"
)

// Load reads the configuration document and applies environment
// overrides. The document path is the explicit path argument, else
// ANNEM_CONFIG_PATH, else ./config.yml; if that file cannot be read,
// ./config.yml.example is tried instead, and if that also fails the
// built-in defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("ANNEM_CONFIG_PATH")
	}
	if path == "" {
		path = defaultConfigPath
	}

	data, err := os.ReadFile(path)
	if err != nil && path != fallbackConfigPath {
		data, err = os.ReadFile(fallbackConfigPath)
	}

	cfg := Default()
	if err == nil {
		if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
			return nil, fmt.Errorf("parse config: %w", uerr)
		}
	}

	applyEnvOverrides(cfg)

	if verr := cfg.Validate(); verr != nil {
		return nil, verr
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANNEM_DASHBOARD_PASSWORD"); v != "" {
		cfg.Dashboard.Password = v
	}
	if v := os.Getenv("ANNEM_DASHBOARD_USERNAME"); v != "" {
		cfg.Dashboard.Username = v
	}
	if v := os.Getenv("ANNEM_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Messenger.BotToken = v
	}
	if v := os.Getenv("ANNEM_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
}

// Validate enforces configuration invariants that must fail startup
// fatally rather than degrade silently (§7 "Configuration invariant
// violation").
func (c *Config) Validate() error {
	if c.Dashboard.Username != "" && c.Dashboard.Password == "" {
		return fmt.Errorf("config: dashboard.username is set but dashboard.password is empty")
	}
	if c.Model.SlotMinutes <= 0 || 24*60%c.Model.SlotMinutes != 0 {
		return fmt.Errorf("config: model.slot_minutes must evenly divide a day, got %d", c.Model.SlotMinutes)
	}
	if c.Model.AwakeStartHour < 0 || c.Model.AwakeEndHour > 24 || c.Model.AwakeStartHour >= c.Model.AwakeEndHour {
		return fmt.Errorf("config: model.awake_start_hour/awake_end_hour invalid")
	}
	return nil
}
