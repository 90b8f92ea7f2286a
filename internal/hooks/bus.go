// Package hooks dispatches callbacks after entity writes, deletes and
// successful authentications.
//
// Handlers run synchronously on the caller's goroutine, inside whatever
// transaction the caller carries in its context. A per-call-stack guard
// drops a second dispatch for the same (kind, id) while the first one is
// still running, which breaks save -> recompute -> save loops.
package hooks

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Mutation describes one persisted change.
type Mutation struct {
	Kind     string
	ID       uuid.UUID
	Entity   any
	Previous any
	Created  bool
}

// Handler reacts to a mutation. Returning an error aborts the caller's
// transaction.
type Handler func(ctx context.Context, m Mutation) error

type event int

const (
	afterSave event = iota
	afterDelete
	authenticated
)

// Bus holds the registered handlers per event and entity kind.
type Bus struct {
	mu       sync.RWMutex
	handlers map[event]map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[event]map[string][]Handler)}
}

func (b *Bus) OnAfterSave(kind string, h Handler) {
	b.register(afterSave, kind, h)
}

func (b *Bus) OnAfterDelete(kind string, h Handler) {
	b.register(afterDelete, kind, h)
}

// OnAuthenticated registers h for successful sign-ins. The mutation carries
// the user's kind and id.
func (b *Bus) OnAuthenticated(h Handler) {
	b.register(authenticated, "", h)
}

func (b *Bus) register(ev event, kind string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers[ev] == nil {
		b.handlers[ev] = make(map[string][]Handler)
	}
	b.handlers[ev][kind] = append(b.handlers[ev][kind], h)
}

// AfterSave runs the after-save handlers for m.Kind in registration order.
func (b *Bus) AfterSave(ctx context.Context, m Mutation) error {
	return b.dispatch(ctx, afterSave, m.Kind, m)
}

// AfterDelete runs the after-delete handlers for m.Kind in registration order.
func (b *Bus) AfterDelete(ctx context.Context, m Mutation) error {
	return b.dispatch(ctx, afterDelete, m.Kind, m)
}

// Authenticated runs the sign-in handlers.
func (b *Bus) Authenticated(ctx context.Context, m Mutation) error {
	return b.dispatch(ctx, authenticated, "", m)
}

func (b *Bus) dispatch(ctx context.Context, ev event, kind string, m Mutation) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev][kind]...)
	b.mu.RUnlock()
	if len(handlers) == 0 {
		return nil
	}

	ctx, ok := Enter(ctx, Key{Kind: guardKind(ev, m.Kind), ID: m.ID})
	if !ok {
		return nil
	}
	for _, h := range handlers {
		if err := h(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func guardKind(ev event, kind string) string {
	if ev == authenticated {
		return "auth:" + kind
	}
	return kind
}
