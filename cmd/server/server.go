package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// run starts the background loops and the HTTP server, then blocks until
// a shutdown signal arrives.
func (app *application) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go app.dispatcher.Run(ctx)
	go app.sweeper.Run(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", app.config.Server.Port),
		Handler: app.newRouter(),
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("server listening", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-shutdownCh:
		app.logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		app.logger.Error("server failed", "error", err)
		return err
	case <-ctx.Done():
	}

	// Stop the dispatcher and sweeper, then drain in-flight requests. The
	// queue is volatile by design; entries not yet dispatched are lost and
	// their records stay pending until the retention sweep.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	app.cleanup()
	app.logger.Info("server shutdown completed")
	return nil
}
