package hooks

import (
	"context"

	"github.com/google/uuid"
)

// Key identifies a guarded operation on one record.
type Key struct {
	Kind string
	ID   uuid.UUID
}

type guardCtxKey struct{}

type guardSet map[Key]struct{}

// Enter marks key as active on the returned context. It reports false, and
// returns ctx unchanged, when key is already active further up the stack.
// The set is copied on every entry so sibling calls never see each other.
func Enter(ctx context.Context, key Key) (context.Context, bool) {
	current, _ := ctx.Value(guardCtxKey{}).(guardSet)
	if _, busy := current[key]; busy {
		return ctx, false
	}
	next := make(guardSet, len(current)+1)
	for k := range current {
		next[k] = struct{}{}
	}
	next[key] = struct{}{}
	return context.WithValue(ctx, guardCtxKey{}, next), true
}

// Active reports whether key is active on ctx.
func Active(ctx context.Context, key Key) bool {
	current, _ := ctx.Value(guardCtxKey{}).(guardSet)
	_, busy := current[key]
	return busy
}
