// Package billing holds the pure pricing rules for time entries: which rate
// applies to an entry and which task an entry falls back to.
package billing

import (
	"portal/internal/model"
	"portal/pkg/money"

	"github.com/shopspring/decimal"
)

// Policy tunes the rate resolver.
type Policy struct {
	// IssuerRateFallback lets any invoice, not only a Task Order, bill at the
	// issuer's cost rate when the entry's task has no billing rate.
	IssuerRateFallback bool
}

// Rates is the outcome of rate resolution. Either side may be absent.
type Rates struct {
	Billing decimal.NullDecimal
	Cost    decimal.NullDecimal
}

// RateResolver picks the billing and cost rates for a time entry. It reads
// the entry's Task and User.Profile and the invoice's User.Profile, which
// must be loaded by the caller. It never writes.
type RateResolver struct {
	Policy Policy
}

func NewRateResolver(policy Policy) RateResolver {
	return RateResolver{Policy: policy}
}

// Resolve applies, first match wins: the issuer's cost rate on a Task Order
// invoice, then the task's billing rate, then nothing. The cost rate is the
// entry owner's profile rate.
func (r RateResolver) Resolve(entry *model.TimeEntry, invoice *model.Invoice) Rates {
	var rates Rates

	issuerRate := issuerCostRate(invoice)
	taskRate := taskBillingRate(entry)

	switch {
	case invoice != nil && invoice.DocType == model.DocTypeTaskOrder && issuerRate.Valid:
		rates.Billing = issuerRate
	case taskRate.Valid:
		rates.Billing = taskRate
	case r.Policy.IssuerRateFallback && issuerRate.Valid:
		rates.Billing = issuerRate
	}

	if entry.User != nil && entry.User.Profile != nil {
		rates.Cost = entry.User.Profile.CostRate
	}
	return rates
}

// Price derives amount, cost and net for hours at the given rates.
func Price(rates Rates, hours decimal.Decimal) (amount, cost, net decimal.Decimal) {
	amount = money.MulNull(rates.Billing, hours)
	cost = money.MulNull(rates.Cost, hours)
	net = money.Round(amount.Sub(cost))
	return amount, cost, net
}

// Apply resolves the rates for entry and stores the derived fields on it.
func (r RateResolver) Apply(entry *model.TimeEntry, invoice *model.Invoice) {
	entry.Amount, entry.Cost, entry.Net = Price(r.Resolve(entry, invoice), entry.Hours)
}

func issuerCostRate(invoice *model.Invoice) decimal.NullDecimal {
	if invoice == nil || invoice.User == nil || invoice.User.Profile == nil {
		return decimal.NullDecimal{}
	}
	return invoice.User.Profile.CostRate
}

func taskBillingRate(entry *model.TimeEntry) decimal.NullDecimal {
	if entry.Task == nil {
		return decimal.NullDecimal{}
	}
	return entry.Task.BillingRate
}
