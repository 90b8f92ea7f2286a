// Package payment opens hosted checkout sessions for invoice balances.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
)

// ErrNotConfigured is returned when no secret key is set.
var ErrNotConfigured = errors.New("payment provider is not configured")

// Config holds the provider secret and the redirect targets.
type Config struct {
	Secret     string
	SuccessURL string
	CancelURL  string
}

// CheckoutRequest describes one invoice balance to collect.
type CheckoutRequest struct {
	InvoiceID     string
	InvoiceNumber int64
	Description   string
	// AmountCents is the balance in US cents. It must be positive.
	AmountCents int64
}

// Session is the provider's hosted checkout page.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Checkout creates checkout sessions.
type Checkout interface {
	Enabled() bool
	CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error)
}

type stripeCheckout struct {
	cfg        Config
	newSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeCheckout returns a Checkout backed by Stripe. With an empty
// secret every CreateSession call fails with ErrNotConfigured.
func NewStripeCheckout(cfg Config) Checkout {
	client := checkoutsession.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.Secret}
	return &stripeCheckout{cfg: cfg, newSession: client.New}
}

func (c *stripeCheckout) Enabled() bool {
	return c.cfg.Secret != ""
}

func (c *stripeCheckout) CreateSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive, got %d", req.AmountCents)
	}

	name := req.Description
	if name == "" {
		name = fmt.Sprintf("Invoice %d", req.InvoiceNumber)
	}
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(c.cfg.SuccessURL),
		CancelURL:         stripe.String(c.cfg.CancelURL),
		ClientReferenceID: stripe.String(req.InvoiceID),
	}
	params.Context = ctx
	params.AddMetadata("invoice_id", req.InvoiceID)

	s, err := c.newSession(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}
