package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocTypeTaskOrder marks invoices billed at the issuer's cost rate.
const DocTypeTaskOrder = "Task Order"

// Invoice state, derived from the balance.
const (
	InvoiceStateOpen = "open"
	InvoiceStatePaid = "paid"
)

// Invoice aggregates time entries. Amount, Cost, Net and Hours are derived
// and written only by the recompute path.
type Invoice struct {
	Base
	InvoiceNumber int64               `gorm:"uniqueIndex;not null" json:"invoice_number"`
	Subject       string              `gorm:"type:varchar(300)" json:"subject"`
	DocType       string              `gorm:"type:varchar(100)" json:"doc_type"`
	ClientID      *uuid.UUID          `gorm:"type:uuid;index" json:"client_id"`
	Client        *Client             `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID     *uuid.UUID          `gorm:"type:uuid;index" json:"project_id"`
	Project       *Project            `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	TaskID        *uuid.UUID          `gorm:"type:uuid;index" json:"task_id"`
	Task          *Task               `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	UserID        *uuid.UUID          `gorm:"type:uuid;index" json:"user_id"`
	User          *User               `gorm:"foreignKey:UserID" json:"user,omitempty"`
	IssueDate     *time.Time          `json:"issue_date"`
	StartDate     *time.Time          `json:"start_date"`
	EndDate       *time.Time          `json:"end_date"`
	DueDate       *time.Time          `json:"due_date"`
	PaidAmount    decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"paid_amount"`
	Amount        decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Cost          decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Net           decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"net"`
	Hours         decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0" json:"hours"`
	// Reset zeroes every attached entry's amount, cost and net on recompute.
	Reset bool `gorm:"not null;default:false" json:"reset"`
}

// Balance is amount minus paid amount; no paid amount counts as zero.
func (i *Invoice) Balance() decimal.Decimal {
	if !i.PaidAmount.Valid {
		return i.Amount
	}
	return i.Amount.Sub(i.PaidAmount.Decimal)
}

// State derives open/paid from the balance.
func (i *Invoice) State() string {
	if i.Balance().IsPositive() {
		return InvoiceStateOpen
	}
	return InvoiceStatePaid
}

// DefaultSubject is used when an invoice is created without one.
func DefaultSubject(number int64) string {
	return fmt.Sprintf("Invoice %d", number)
}

// TimeEntry is one logged interval of work. Amount, Cost and Net are derived
// from the resolved rates.
type TimeEntry struct {
	Base
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ClientID    *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"`
	Client      *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ProjectID   *uuid.UUID      `gorm:"type:uuid;index" json:"project_id"`
	Project     *Project        `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	TaskID      *uuid.UUID      `gorm:"type:uuid;index" json:"task_id"`
	Task        *Task           `gorm:"foreignKey:TaskID" json:"task,omitempty"`
	InvoiceID   *uuid.UUID      `gorm:"type:uuid;index" json:"invoice_id"`
	Invoice     *Invoice        `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	Hours       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"hours"`
	Description string          `gorm:"type:text" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Cost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Net         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"net"`
}

// Counter is a named monotonic sequence.
type Counter struct {
	Name  string `gorm:"type:varchar(64);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// InvoiceNumberCounter names the sequence that numbers invoices.
const InvoiceNumberCounter = "invoice_number"
