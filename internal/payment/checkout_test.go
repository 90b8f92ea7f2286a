package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func TestCreateSessionRequiresSecret(t *testing.T) {
	c := NewStripeCheckout(Config{})
	_, err := c.CreateSession(context.Background(), CheckoutRequest{InvoiceID: "x", AmountCents: 100})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCreateSessionRejectsNonPositiveAmount(t *testing.T) {
	c := NewStripeCheckout(Config{Secret: "sk_test"})
	_, err := c.CreateSession(context.Background(), CheckoutRequest{InvoiceID: "x", AmountCents: 0})
	require.Error(t, err)
}

func TestCreateSessionParams(t *testing.T) {
	c := NewStripeCheckout(Config{Secret: "sk_test", SuccessURL: "https://portal/ok", CancelURL: "https://portal/cancel"}).(*stripeCheckout)
	var got *stripe.CheckoutSessionParams
	c.newSession = func(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		got = p
		return &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout/cs_1"}, nil
	}

	s, err := c.CreateSession(context.Background(), CheckoutRequest{InvoiceID: "inv-1", InvoiceNumber: 7, AmountCents: 75000})
	require.NoError(t, err)
	assert.Equal(t, &Session{ID: "cs_1", URL: "https://checkout/cs_1"}, s)

	require.NotNil(t, got)
	assert.Equal(t, string(stripe.CheckoutSessionModePayment), *got.Mode)
	require.Len(t, got.LineItems, 1)
	assert.Equal(t, int64(75000), *got.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "Invoice 7", *got.LineItems[0].PriceData.ProductData.Name)
	assert.Equal(t, "inv-1", *got.ClientReferenceID)
	assert.Equal(t, "inv-1", got.Metadata["invoice_id"])
}

func TestCreateSessionWrapsProviderError(t *testing.T) {
	c := NewStripeCheckout(Config{Secret: "sk_test"}).(*stripeCheckout)
	c.newSession = func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
		return nil, errors.New("card_declined")
	}
	_, err := c.CreateSession(context.Background(), CheckoutRequest{InvoiceID: "x", AmountCents: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "card_declined")
}
