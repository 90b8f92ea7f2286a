package service

import (
	"context"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Principal is the authenticated caller of a service operation.
type Principal struct {
	ID          uuid.UUID
	Username    string
	IsSuperuser bool
	Profile     *PrincipalProfile
}

// PrincipalProfile carries the billing side of the caller's profile.
type PrincipalProfile struct {
	CostRate      decimal.NullDecimal
	DefaultTaskID *uuid.UUID
}

// System is used by operator tooling that acts outside a user session.
var System = Principal{IsSuperuser: true, Username: "system"}

// PrincipalFromUser builds a principal from a loaded user and profile.
func PrincipalFromUser(u *model.User) Principal {
	p := Principal{ID: u.ID, Username: u.Username, IsSuperuser: u.IsSuperuser}
	if u.Profile != nil {
		p.Profile = &PrincipalProfile{CostRate: u.Profile.CostRate, DefaultTaskID: u.Profile.DefaultTaskID}
	}
	return p
}

// CanAct reports whether p may act on a record owned by owner.
func (p Principal) CanAct(owner uuid.UUID) bool {
	return p.IsSuperuser || (p.ID != uuid.Nil && p.ID == owner)
}

// ownerScope returns the owner filter for list queries: nil for superusers.
func (p Principal) ownerScope() *uuid.UUID {
	if p.IsSuperuser {
		return nil
	}
	id := p.ID
	return &id
}

func (p Principal) actorID() *uuid.UUID {
	if p.ID == uuid.Nil {
		return nil
	}
	id := p.ID
	return &id
}

func requireSuperuser(p Principal, entity string) error {
	if !p.IsSuperuser {
		return apperror.PermissionDenied(entity, "superuser required")
	}
	return nil
}

type principalCtxKey struct{}

// WithPrincipal stores the caller on ctx so hook handlers can attribute work.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFrom returns the caller stored on ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
