package repository

import (
	"context"

	"portal/internal/apperror"
	"portal/internal/model"

	"gorm.io/gorm"
)

// AuditRepository appends and pages the billing audit trail. Rows are never
// updated or archived.
type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, opts ListOptions) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	logs store[model.AuditLog]
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{
		logs: newStore[model.AuditLog](db, "audit log", []string{"user_id", "action", "entity_kind", "entity_id"}, "User").withoutArchive(),
	}
}

// Log writes inside the transaction on ctx, so a rolled back mutation leaves
// no trail.
func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return apperror.FromDB("audit log", r.logs.conn(ctx).Create(entry).Error)
}

func (r *auditRepository) List(ctx context.Context, opts ListOptions) ([]model.AuditLog, int64, error) {
	return r.logs.List(ctx, opts)
}
