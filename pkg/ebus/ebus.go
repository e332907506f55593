// Package ebus is a minimal in-process event bus. Events are plain
// structs dispatched synchronously to listeners registered for their
// concrete type.
package ebus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

type EBus struct {
	listeners map[reflect.Type][]Listener
	mx        sync.RWMutex
}

func New() *EBus {
	return &EBus{
		listeners: make(map[reflect.Type][]Listener),
	}
}

func (e *EBus) Subscribe(event any, handler Listener) *EBus {
	e.mx.Lock()
	defer e.mx.Unlock()

	key := reflect.TypeOf(event)
	e.listeners[key] = append(e.listeners[key], handler)

	return e
}

func (e *EBus) Emit(ctx context.Context, event any) error {
	e.mx.RLock()
	defer e.mx.RUnlock()

	handlers, ok := e.listeners[reflect.TypeOf(event)]
	if !ok {
		return fmt.Errorf("no listener registered: type %T", event)
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}

	return nil
}
