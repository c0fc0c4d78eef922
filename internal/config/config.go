package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ipckit-go/ipckit/internal/eventbus"
	"github.com/ipckit-go/ipckit/internal/taskmanager"
)

// Config holds the demo daemon's environment-driven configuration. Library
// packages under internal/ are never constructed from this type directly;
// cmd/ipckitd translates it into each package's own Config record.
type Config struct {
	HTTP     HTTPConfig
	Logging  LogConfig
	Socket   SocketConfig
	EventBus EventBusConfig
	TaskMgr  TaskManagerConfig
}

// HTTPConfig configures the demo daemon's /healthz and /metrics surface.
type HTTPConfig struct {
	Port string `envconfig:"IPCKITD_HTTP_PORT" default:"8090"`
	Host string `envconfig:"IPCKITD_HTTP_HOST" default:"127.0.0.1"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level       string `envconfig:"IPCKITD_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"IPCKITD_LOG_DEV" default:"false"`
}

// SocketConfig configures the demo local-socket echo server.
type SocketConfig struct {
	Name string `envconfig:"IPCKITD_SOCKET_NAME" default:"ipckitd"`
}

// EventBusConfig mirrors eventbus.Config for env loading.
type EventBusConfig struct {
	HistorySize      int    `envconfig:"IPCKITD_EVENTBUS_HISTORY_SIZE" default:"1000"`
	SubscriberBuffer int    `envconfig:"IPCKITD_EVENTBUS_SUBSCRIBER_BUFFER" default:"256"`
	SlowConsumer     string `envconfig:"IPCKITD_EVENTBUS_SLOW_CONSUMER" default:"drop_oldest"`
}

// TaskManagerConfig mirrors taskmanager.Config for env loading.
type TaskManagerConfig struct {
	RetentionSecs int `envconfig:"IPCKITD_TASKMGR_RETENTION_SECS" default:"3600"`
	MaxConcurrent int `envconfig:"IPCKITD_TASKMGR_MAX_CONCURRENT" default:"100"`
}

// slowConsumerPolicy maps the env-loaded string to an eventbus.SlowConsumerPolicy,
// falling back to DropOldest for an unrecognized value.
func (c EventBusConfig) slowConsumerPolicy() eventbus.SlowConsumerPolicy {
	switch c.SlowConsumer {
	case "drop_newest":
		return eventbus.DropNewest
	case "block":
		return eventbus.Block
	default:
		return eventbus.DropOldest
	}
}

// ToEventBusConfig translates the env-loaded record into eventbus.Config.
func (c EventBusConfig) ToEventBusConfig() eventbus.Config {
	return eventbus.Config{
		HistorySize:      c.HistorySize,
		SubscriberBuffer: c.SubscriberBuffer,
		SlowConsumer:     c.slowConsumerPolicy(),
	}
}

// ToTaskManagerConfig translates the env-loaded record into
// taskmanager.Config, embedding an eventbus.Config built from eb.
func (c TaskManagerConfig) ToTaskManagerConfig(eb EventBusConfig) taskmanager.Config {
	return taskmanager.Config{
		RetentionPeriod: time.Duration(c.RetentionSecs) * time.Second,
		MaxConcurrent:   c.MaxConcurrent,
		EventBusConfig:  eb.ToEventBusConfig(),
	}
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from the environment, falling back to
// Default() if any variable fails to parse.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns the daemon's default configuration.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Port: "8090", Host: "127.0.0.1"},
		Logging: LogConfig{Level: "info", Development: false},
		Socket:  SocketConfig{Name: "ipckitd"},
		EventBus: EventBusConfig{
			HistorySize:      1000,
			SubscriberBuffer: 256,
			SlowConsumer:     "drop_oldest",
		},
		TaskMgr: TaskManagerConfig{
			RetentionSecs: 3600,
			MaxConcurrent: 100,
		},
	}
}
