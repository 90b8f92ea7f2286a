package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entity kinds, used by the hook bus, notes and search.
const (
	KindUser      = "user"
	KindProfile   = "profile"
	KindCompany   = "company"
	KindClient    = "client"
	KindContact   = "contact"
	KindProject   = "project"
	KindTask      = "task"
	KindTimeEntry = "time_entry"
	KindInvoice   = "invoice"
	KindReport    = "report"
	KindNote      = "note"
)

// Base carries the identity, soft-archive flag and timestamps shared by
// every stored entity.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Archived  bool      `gorm:"not null;default:false;index" json:"archived"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the primary key in Go so every dialect behaves alike.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Models returns every persisted model in migration order.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Task{},
		&Profile{},
		&Company{},
		&Client{},
		&Contact{},
		&Project{},
		&Invoice{},
		&TimeEntry{},
		&Report{},
		&Note{},
		&AuditLog{},
		&Counter{},
	}
}
