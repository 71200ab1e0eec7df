package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the detection engine settings. Durations are strings
// parsed with time.ParseDuration at construction time.
type EngineConfig struct {
	NumWorkers               int     `yaml:"num_workers"`
	SizeOfObservationChannel int     `yaml:"size_of_observation_channel"`
	WindowRetention          string  `yaml:"window_retention"`
	IdleEvictionTimeout      string  `yaml:"idle_eviction_timeout"`
	PriorityFloor            float64 `yaml:"priority_floor"`
	MinConfidence            float64 `yaml:"min_confidence"`
	AlertCooldown            string  `yaml:"alert_cooldown"`
	FlowDeadline             string  `yaml:"flow_deadline"`
}

// RulesConfig points at the attack rule catalog file. When the path is empty
// only the built-in catalog is used.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// MLConfig holds the model inference endpoint settings.
type MLConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
}

// NATSConfig holds the observation and verdict bus settings.
type NATSConfig struct {
	URL                string `yaml:"url"`
	ObservationSubject string `yaml:"observation_subject"`
	VerdictSubject     string `yaml:"verdict_subject"`
}

// APIConfig holds the admin/query HTTP server settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// ClickHouseConfig holds the connection details for the verdict store.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HistoryConfig controls persistence of verdict records.
type HistoryConfig struct {
	Enabled       bool             `yaml:"enabled"`
	ClickHouse    ClickHouseConfig `yaml:"clickhouse"`
	FlushInterval string           `yaml:"flush_interval"`
	BatchSize     int              `yaml:"batch_size"`
}

// SMTPConfig holds the email notification settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// AIConfig holds the settings for AI-generated incident analysis attached to
// alert notifications.
type AIConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// NotificationConfig controls the alert notification sink.
type NotificationConfig struct {
	Enabled     bool       `yaml:"enabled"`
	MinSeverity string     `yaml:"min_severity"`
	SMTP        SMTPConfig `yaml:"smtp"`
	AI          AIConfig   `yaml:"ai"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine       EngineConfig       `yaml:"engine"`
	Rules        RulesConfig        `yaml:"rules"`
	ML           MLConfig           `yaml:"ml"`
	NATS         NATSConfig         `yaml:"nats"`
	API          APIConfig          `yaml:"api"`
	History      HistoryConfig      `yaml:"history"`
	Notification NotificationConfig `yaml:"notification"`
}

// Documented defaults for the engine's configuration surface.
const (
	DefaultWindowRetention     = "60s"
	DefaultIdleEvictionTimeout = "10m"
	DefaultAlertCooldown       = "5s"
	DefaultMLTimeout           = "2s"
	DefaultFlowDeadline        = "5s"
	DefaultPriorityFloor       = 0.8
	DefaultMinConfidence       = 0.5
)

// LoadConfig reads the configuration from a YAML file and returns a Config
// struct with defaults applied for omitted engine settings.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.NumWorkers <= 0 {
		c.Engine.NumWorkers = 4
	}
	if c.Engine.SizeOfObservationChannel <= 0 {
		c.Engine.SizeOfObservationChannel = 1000
	}
	if c.Engine.WindowRetention == "" {
		c.Engine.WindowRetention = DefaultWindowRetention
	}
	if c.Engine.IdleEvictionTimeout == "" {
		c.Engine.IdleEvictionTimeout = DefaultIdleEvictionTimeout
	}
	if c.Engine.AlertCooldown == "" {
		c.Engine.AlertCooldown = DefaultAlertCooldown
	}
	if c.Engine.FlowDeadline == "" {
		c.Engine.FlowDeadline = DefaultFlowDeadline
	}
	if c.Engine.PriorityFloor <= 0 {
		c.Engine.PriorityFloor = DefaultPriorityFloor
	}
	if c.Engine.MinConfidence <= 0 {
		c.Engine.MinConfidence = DefaultMinConfidence
	}
	if c.ML.Timeout == "" {
		c.ML.Timeout = DefaultMLTimeout
	}
	if c.History.FlushInterval == "" {
		c.History.FlushInterval = "5s"
	}
	if c.History.BatchSize <= 0 {
		c.History.BatchSize = 100
	}
}
