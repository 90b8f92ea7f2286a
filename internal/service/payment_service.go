package service

import (
	"context"
	"errors"
	"fmt"

	"portal/internal/apperror"
	"portal/internal/payment"
	"portal/internal/repository"
	"portal/pkg/money"
)

type PaymentService interface {
	// CreateCheckout opens a checkout session for the invoice's balance.
	CreateCheckout(ctx context.Context, p Principal, invoiceID string) (*payment.Session, error)
}

type paymentService struct {
	invoiceRepo repository.InvoiceRepository
	checkout    payment.Checkout
}

func NewPaymentService(invoiceRepo repository.InvoiceRepository, checkout payment.Checkout) PaymentService {
	return &paymentService{invoiceRepo: invoiceRepo, checkout: checkout}
}

func (s *paymentService) CreateCheckout(ctx context.Context, p Principal, invoiceID string) (*payment.Session, error) {
	id, err := parseID("invoice", invoiceID)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeInvoice(p, invoice); err != nil {
		return nil, err
	}
	if !s.checkout.Enabled() {
		return nil, apperror.Validation("invoice", "payments are not configured")
	}
	balance := invoice.Balance()
	if !balance.IsPositive() {
		return nil, apperror.Validation("invoice", "balance must be positive to collect payment")
	}

	session, err := s.checkout.CreateSession(ctx, payment.CheckoutRequest{
		InvoiceID:     invoice.ID.String(),
		InvoiceNumber: invoice.InvoiceNumber,
		Description:   invoice.Subject,
		AmountCents:   money.Cents(balance),
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, apperror.Validation("invoice", "payments are not configured")
		}
		return nil, fmt.Errorf("checkout invoice %d: %w", invoice.InvoiceNumber, err)
	}
	return session, nil
}
