package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/naotama2002/webauth-go/internal/logger"
)

// WithSignalCancel returns a context that is cancelled on SIGINT or SIGTERM,
// so a pending authentication ends as aborted instead of killing the process.
func WithSignalCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			logger.Infof("Received signal: %v", sig)
			logger.Infof("Cancelling authentication...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
