package interrupter

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var ErrInterrupted = fmt.Errorf("got interrupt signal")

// Interrupter turns SIGINT/SIGTERM into a run-group shutdown.
type Interrupter struct{}

func (i Interrupter) Run(ctx context.Context) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		return fmt.Errorf("%w: %s", ErrInterrupted, sig.String())
	case <-ctx.Done():
		return fmt.Errorf("interrupter: %w", ctx.Err())
	}
}
