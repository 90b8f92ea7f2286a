package service

import (
	"context"
	"fmt"

	"portal/internal/billing"
	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const recomputeGuard = "invoice.recompute"

// InvoiceAggregator keeps an invoice's amount, cost, net and hours equal to
// the sums over its time entries.
type InvoiceAggregator interface {
	Recompute(ctx context.Context, invoiceID uuid.UUID) error
	// Register wires the recompute triggers into the hook bus.
	Register(bus *hooks.Bus)
}

type invoiceAggregator struct {
	invoices  repository.InvoiceRepository
	entries   repository.TimeEntryRepository
	txManager repository.TransactionManager
	rates     billing.RateResolver
	logger    *zap.Logger
}

func NewInvoiceAggregator(
	invoices repository.InvoiceRepository,
	entries repository.TimeEntryRepository,
	txManager repository.TransactionManager,
	rates billing.RateResolver,
	logger *zap.Logger,
) InvoiceAggregator {
	return &invoiceAggregator{
		invoices:  invoices,
		entries:   entries,
		txManager: txManager,
		rates:     rates,
		logger:    logger,
	}
}

func (a *invoiceAggregator) Register(bus *hooks.Bus) {
	bus.OnAfterSave(model.KindTimeEntry, a.onEntryChanged)
	bus.OnAfterDelete(model.KindTimeEntry, a.onEntryChanged)
	bus.OnAfterSave(model.KindInvoice, func(ctx context.Context, m hooks.Mutation) error {
		return a.Recompute(ctx, m.ID)
	})
}

// onEntryChanged recomputes the entry's invoice and, when the entry moved,
// the invoice it left.
func (a *invoiceAggregator) onEntryChanged(ctx context.Context, m hooks.Mutation) error {
	var targets []uuid.UUID
	if e, ok := m.Entity.(*model.TimeEntry); ok && e.InvoiceID != nil {
		targets = append(targets, *e.InvoiceID)
	}
	if prev, ok := m.Previous.(*model.TimeEntry); ok && prev.InvoiceID != nil {
		if len(targets) == 0 || targets[0] != *prev.InvoiceID {
			targets = append(targets, *prev.InvoiceID)
		}
	}
	for _, id := range targets {
		if err := a.Recompute(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Recompute reprices every entry on the invoice and writes the totals. The
// invoice row is locked for the duration. A nested call for the same
// invoice on the same call stack returns immediately.
func (a *invoiceAggregator) Recompute(ctx context.Context, invoiceID uuid.UUID) error {
	ctx, ok := hooks.Enter(ctx, hooks.Key{Kind: recomputeGuard, ID: invoiceID})
	if !ok {
		return nil
	}

	return a.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := a.invoices.GetForUpdate(txCtx, invoiceID)
		if err != nil {
			return err
		}
		entries, err := a.entries.ListByInvoice(txCtx, invoiceID)
		if err != nil {
			return err
		}

		amounts := make([]decimal.Decimal, 0, len(entries))
		costs := make([]decimal.Decimal, 0, len(entries))
		hours := make([]decimal.Decimal, 0, len(entries))
		for i := range entries {
			e := &entries[i]
			if e.ProjectID == nil {
				e.ProjectID = invoice.ProjectID
			}
			if e.ClientID == nil {
				e.ClientID = invoice.ClientID
			}
			if e.TaskID == nil && invoice.TaskID != nil {
				e.TaskID = invoice.TaskID
				e.Task = invoice.Task
			}

			if invoice.Reset {
				e.Amount, e.Cost, e.Net = decimal.Zero, decimal.Zero, decimal.Zero
			} else {
				a.rates.Apply(e, invoice)
			}
			if err := a.entries.UpdateDerived(txCtx, e); err != nil {
				return err
			}

			amounts = append(amounts, e.Amount)
			costs = append(costs, e.Cost)
			hours = append(hours, e.Hours)
		}

		totals := repository.InvoiceTotals{
			Amount: money.Sum(amounts...),
			Cost:   money.Sum(costs...),
			Hours:  money.Sum(hours...),
		}
		totals.Net = money.Round(totals.Amount.Sub(totals.Cost))
		if err := a.invoices.UpdateTotals(txCtx, invoiceID, totals); err != nil {
			return fmt.Errorf("write invoice totals: %w", err)
		}

		a.logger.Debug("invoice recomputed",
			zap.String("invoice_id", invoiceID.String()),
			zap.Int("entries", len(entries)),
			zap.String("amount", money.String(totals.Amount)),
			zap.String("hours", money.String(totals.Hours)),
		)
		return nil
	})
}
