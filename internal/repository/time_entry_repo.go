package repository

import (
	"context"

	"portal/internal/apperror"
	"portal/internal/model"
	"portal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TimeEntryRepository interface {
	Store[model.TimeEntry]
	// ListByInvoice returns every entry on the invoice, archived included,
	// with task and owner profile loaded.
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.TimeEntry, error)
	// UpdateDerived writes amount, cost, net and the project/task/client
	// references without firing hooks.
	UpdateDerived(ctx context.Context, entry *model.TimeEntry) error
	IDsByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error)
	// ApprovedHours sums the user's hours on the project that are attached
	// to an invoice.
	ApprovedHours(ctx context.Context, userID, projectID uuid.UUID, excludeArchived bool) (decimal.Decimal, error)
	DetachInvoice(ctx context.Context, invoiceID uuid.UUID) error
	DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error
	ClearReference(ctx context.Context, column string, id uuid.UUID) error
}

type timeEntryRepository struct {
	store[model.TimeEntry]
}

func NewTimeEntryRepository(db *gorm.DB) TimeEntryRepository {
	return &timeEntryRepository{newStore[model.TimeEntry](db, "time entry",
		[]string{"user_id", "client_id", "project_id", "task_id", "invoice_id", "date", "hours", "amount"},
		"Task", "Project", "Client")}
}

func (r *timeEntryRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]model.TimeEntry, error) {
	var entries []model.TimeEntry
	err := r.conn(ctx).
		Preload("Task").
		Preload("User.Profile").
		Where("invoice_id = ?", invoiceID).
		Order("date asc, created_at asc").
		Find(&entries).Error
	return entries, apperror.FromDB("time entry", err)
}

func (r *timeEntryRepository) UpdateDerived(ctx context.Context, entry *model.TimeEntry) error {
	err := r.conn(ctx).Model(&model.TimeEntry{}).Where("id = ?", entry.ID).Updates(map[string]interface{}{
		"amount":     entry.Amount,
		"cost":       entry.Cost,
		"net":        entry.Net,
		"project_id": entry.ProjectID,
		"task_id":    entry.TaskID,
		"client_id":  entry.ClientID,
	}).Error
	return apperror.FromDB("time entry", err)
}

func (r *timeEntryRepository) IDsByTask(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.conn(ctx).Model(&model.TimeEntry{}).Where("task_id = ?", taskID).Pluck("id", &ids).Error
	return ids, apperror.FromDB("time entry", err)
}

func (r *timeEntryRepository) ApprovedHours(ctx context.Context, userID, projectID uuid.UUID, excludeArchived bool) (decimal.Decimal, error) {
	var hours []decimal.Decimal
	db := r.conn(ctx).Model(&model.TimeEntry{}).
		Where("user_id = ? AND project_id = ? AND invoice_id IS NOT NULL", userID, projectID)
	if excludeArchived {
		db = db.Where("archived = ?", false)
	}
	if err := db.Pluck("hours", &hours).Error; err != nil {
		return decimal.Zero, apperror.FromDB("time entry", err)
	}
	return money.Sum(hours...), nil
}

func (r *timeEntryRepository) DetachInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	return apperror.FromDB("time entry", clearReference(ctx, r.db, "time_entries", "invoice_id", invoiceID))
}

func (r *timeEntryRepository) DeleteByInvoice(ctx context.Context, invoiceID uuid.UUID) error {
	err := r.conn(ctx).Where("invoice_id = ?", invoiceID).Delete(&model.TimeEntry{}).Error
	return apperror.FromDB("time entry", err)
}

func (r *timeEntryRepository) ClearReference(ctx context.Context, column string, id uuid.UUID) error {
	return apperror.FromDB("time entry", clearReference(ctx, r.db, "time_entries", column, id))
}
