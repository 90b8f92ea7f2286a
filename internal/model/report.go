package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Report freezes totals and a per-project, per-member rollup over a set of
// invoices. Team is stored as project name -> username -> TeamLine.
type Report struct {
	Base
	Name     string          `gorm:"type:varchar(300)" json:"name"`
	Date     *time.Time      `json:"date"`
	UserID   *uuid.UUID      `gorm:"type:uuid;index" json:"user_id"`
	Hours    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"hours"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Cost     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"cost"`
	Net      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"net"`
	Team     datatypes.JSON  `json:"team"`
	Invoices []Invoice       `gorm:"many2many:report_invoices;" json:"invoices,omitempty"`
	Clients  []Client        `gorm:"many2many:report_clients;" json:"clients,omitempty"`
	Projects []Project       `gorm:"many2many:report_projects;" json:"projects,omitempty"`
	Tasks    []Task          `gorm:"many2many:report_tasks;" json:"tasks,omitempty"`
	Contacts []Contact       `gorm:"many2many:report_contacts;" json:"contacts,omitempty"`
}

// TeamLine is one member's rollup on one project. Values are decimal strings.
type TeamLine struct {
	Rate  string `json:"rate"`
	Hours string `json:"hours"`
	Gross string `json:"gross"`
	Cost  string `json:"cost"`
	Net   string `json:"net"`
}

// Note is free text attached to any entity through (AttachedKind, AttachedID).
type Note struct {
	Base
	Title        string     `gorm:"type:varchar(300)" json:"title"`
	Body         string     `gorm:"type:text" json:"body"`
	UserID       *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	AttachedKind string     `gorm:"type:varchar(50);index:idx_note_attachment" json:"attached_kind,omitempty"`
	AttachedID   *uuid.UUID `gorm:"type:uuid;index:idx_note_attachment" json:"attached_id,omitempty"`
}
