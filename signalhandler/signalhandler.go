package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"eigenimages/logging"
)

// SetupHandler returns a context that is cancelled on SIGINT or SIGTERM.
// Work in progress is not interrupted; callers check the context between
// folders. A second signal exits immediately.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stopped := make(chan struct{})

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 2)

	// Register for specific signals
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Handle signals in a separate goroutine
	go func() {
		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %v, stopping after the current folder", sig)
			cancel()
		case <-stopped:
			return
		}

		select {
		case <-sigChan:
			os.Exit(1)
		case <-stopped:
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(stopped)
		})
		cancel()
	}
}
