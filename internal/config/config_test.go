package config

import (
	"testing"
	"time"

	"github.com/ipckit-go/ipckit/internal/eventbus"
	"github.com/stretchr/testify/assert"
)

func TestDefaultIsFullyPopulated(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "8090", cfg.HTTP.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "ipckitd", cfg.Socket.Name)
	assert.Equal(t, 1000, cfg.EventBus.HistorySize)
	assert.Equal(t, 100, cfg.TaskMgr.MaxConcurrent)
}

func TestToEventBusConfigTranslatesSlowConsumer(t *testing.T) {
	cfg := EventBusConfig{HistorySize: 10, SubscriberBuffer: 5, SlowConsumer: "block"}
	ebc := cfg.ToEventBusConfig()
	assert.Equal(t, eventbus.Block, ebc.SlowConsumer)
	assert.Equal(t, 10, ebc.HistorySize)
}

func TestToEventBusConfigDefaultsUnrecognizedPolicyToDropOldest(t *testing.T) {
	cfg := EventBusConfig{SlowConsumer: "nonsense"}
	assert.Equal(t, eventbus.DropOldest, cfg.ToEventBusConfig().SlowConsumer)
}

func TestToTaskManagerConfigConvertsSecondsToDuration(t *testing.T) {
	tmc := TaskManagerConfig{RetentionSecs: 60, MaxConcurrent: 5}
	got := tmc.ToTaskManagerConfig(EventBusConfig{SlowConsumer: "drop_oldest"})
	assert.Equal(t, time.Minute, got.RetentionPeriod)
	assert.Equal(t, 5, got.MaxConcurrent)
}

func TestLoadOrDefaultNeverPanics(t *testing.T) {
	cfg := LoadOrDefault()
	assert.NotNil(t, cfg)
}
