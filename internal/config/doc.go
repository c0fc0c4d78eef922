// Package config provides environment-driven configuration records for the
// ipckit demo daemon.
//
// The core library packages (framed, eventbus, taskmanager, metrics, ...) are
// configured via plain structured records passed by the caller; nothing in
// those packages reads the environment. This package exists for cmd/ipckitd,
// which needs a 12-factor style entry point.
//
// Example usage:
//
//	cfg := config.LoadOrDefault()
//	bus := eventbus.New(cfg.EventBus.ToEventBusConfig(), logger)
package config
