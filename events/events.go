package events

import (
	"reflect"
	"sync"
)

// EventHandler handles an event of the generic type. A returned error stops propagation to the remaining handlers and
// is returned from Publish.
type EventHandler[T any] func(T) error

// globalEventHandlers maps an event type name to handlers that receive events of that type from any EventEmitter.
var globalEventHandlers = make(map[string][]any)

// globalEventHandlersLock guards globalEventHandlers.
var globalEventHandlersLock sync.RWMutex

// eventTypeName returns the key under which handlers for T are registered globally.
func eventTypeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

// SubscribeAny registers a handler for every event of type T published by any EventEmitter. Handlers registered here
// live for the rest of the program, so short-lived objects should subscribe to a specific emitter instead.
func SubscribeAny[T any](callback EventHandler[T]) {
	name := eventTypeName[T]()
	globalEventHandlersLock.Lock()
	defer globalEventHandlersLock.Unlock()
	globalEventHandlers[name] = append(globalEventHandlers[name], callback)
}

// EventEmitter publishes events of a single type to its subscribers and then to global subscribers of that type.
// The zero value is ready to use and is safe for concurrent use.
type EventEmitter[T any] struct {
	lock          sync.RWMutex
	subscriptions []EventHandler[T]
}

// Subscribe adds a handler that is invoked whenever this emitter publishes an event.
func (e *EventEmitter[T]) Subscribe(callback EventHandler[T]) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.subscriptions = append(e.subscriptions, callback)
}

// Publish invokes every handler subscribed to this emitter followed by every global handler for the event type, in
// subscription order. The first error returned by a handler is returned and no further handlers are called.
func (e *EventEmitter[T]) Publish(event T) error {
	e.lock.RLock()
	subscriptions := append([]EventHandler[T](nil), e.subscriptions...)
	e.lock.RUnlock()

	for _, subscription := range subscriptions {
		if err := subscription(event); err != nil {
			return err
		}
	}

	globalEventHandlersLock.RLock()
	callbacks := append([]any(nil), globalEventHandlers[eventTypeName[T]()]...)
	globalEventHandlersLock.RUnlock()

	for _, callback := range callbacks {
		if err := callback.(EventHandler[T])(event); err != nil {
			return err
		}
	}
	return nil
}
