package repository

import (
	"context"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceTotals are the derived columns written by the recompute path.
type InvoiceTotals struct {
	Amount decimal.Decimal
	Cost   decimal.Decimal
	Net    decimal.Decimal
	Hours  decimal.Decimal
}

type InvoiceRepository interface {
	Store[model.Invoice]
	// GetForUpdate loads the invoice with its issuer's profile and its task,
	// locking the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// GetWithIssuer loads the invoice with its issuer's profile, without a lock.
	GetWithIssuer(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// UpdateTotals writes only the derived columns. No hooks fire.
	UpdateTotals(ctx context.Context, id uuid.UUID, totals InvoiceTotals) error
	// NextNumber draws the next invoice number from the counter row. The
	// counter row stays locked until the transaction ends.
	NextNumber(ctx context.Context) (int64, error)
	// ListByIDs returns the invoices ordered by invoice number.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Invoice, error)
	ListIDs(ctx context.Context, includeArchived bool) ([]uuid.UUID, error)
	ClearReference(ctx context.Context, column string, id uuid.UUID) error
}

type invoiceRepository struct {
	store[model.Invoice]
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{newStore[model.Invoice](db, "invoice",
		[]string{"invoice_number", "subject", "doc_type", "client_id", "project_id", "task_id", "user_id",
			"issue_date", "due_date", "amount", "hours"},
		"Client", "Project", "Task", "User")}
}

func (r *invoiceRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	err := forUpdate(ctx, r.conn(ctx)).
		Preload("User.Profile").
		Preload("Task").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, apperror.FromDB("invoice", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) GetWithIssuer(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := r.conn(ctx).Preload("User.Profile").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB("invoice", err)
	}
	return &invoice, nil
}

func (r *invoiceRepository) UpdateTotals(ctx context.Context, id uuid.UUID, totals InvoiceTotals) error {
	err := r.conn(ctx).Model(&model.Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
		"amount": totals.Amount,
		"cost":   totals.Cost,
		"net":    totals.Net,
		"hours":  totals.Hours,
	}).Error
	return apperror.FromDB("invoice", err)
}

func (r *invoiceRepository) NextNumber(ctx context.Context) (int64, error) {
	db := r.conn(ctx)
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Counter{Name: model.InvoiceNumberCounter}).Error
	if err != nil {
		return 0, apperror.FromDB("invoice", err)
	}
	err = db.Model(&model.Counter{}).
		Where("name = ?", model.InvoiceNumberCounter).
		UpdateColumn("value", gorm.Expr("value + 1")).Error
	if err != nil {
		return 0, apperror.FromDB("invoice", err)
	}
	var counter model.Counter
	if err := db.First(&counter, "name = ?", model.InvoiceNumberCounter).Error; err != nil {
		return 0, apperror.FromDB("invoice", err)
	}
	return counter.Value, nil
}

func (r *invoiceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if len(ids) == 0 {
		return invoices, nil
	}
	err := r.conn(ctx).Where("id IN ?", ids).Order("invoice_number asc").Find(&invoices).Error
	return invoices, apperror.FromDB("invoice", err)
}

func (r *invoiceRepository) ListIDs(ctx context.Context, includeArchived bool) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	db := r.conn(ctx).Model(&model.Invoice{})
	if !includeArchived {
		db = db.Where("archived = ?", false)
	}
	err := db.Order("invoice_number asc").Pluck("id", &ids).Error
	return ids, apperror.FromDB("invoice", err)
}

func (r *invoiceRepository) ClearReference(ctx context.Context, column string, id uuid.UUID) error {
	return apperror.FromDB("invoice", clearReference(ctx, r.db, "invoices", column, id))
}
