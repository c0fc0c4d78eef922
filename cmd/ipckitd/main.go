// Command ipckitd is a demo daemon exercising every ipckit package: a local
// socket echo server wrapped in a metered, length-prefixed channel, an
// embedded task manager publishing lifecycle events on its own event bus,
// and an HTTP surface for health checks and Prometheus scraping.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ipckit-go/ipckit/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("config: falling back to defaults: %v", err)
		cfg = config.Default()
	}

	srv, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		srv.logger.Info("shutdown signal received")
		if err := srv.Close(); err != nil {
			srv.logger.Error("error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		log.Fatalf("server error: %v", err)
	}
}
