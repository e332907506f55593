package ebus

import (
	"context"
	"fmt"
)

type Listener func(ctx context.Context, event any) error

// Typed adapts a handler for a concrete event type to a Listener.
func Typed[T any](fn func(ctx context.Context, typed T) error) Listener {
	return func(ctx context.Context, event any) error {
		typed, ok := event.(T)
		if !ok {
			return fmt.Errorf("invalid event type %T", event)
		}
		return fn(ctx, typed)
	}
}
