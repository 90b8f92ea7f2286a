package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Company struct {
	Base
	Name        string   `gorm:"type:varchar(300);not null" json:"name"`
	Description string   `gorm:"type:text" json:"description"`
	Clients     []Client `gorm:"foreignKey:CompanyID" json:"clients,omitempty"`
}

type Client struct {
	Base
	Name        string     `gorm:"type:varchar(300);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	CompanyID   *uuid.UUID `gorm:"type:uuid;index" json:"company_id"`
	Company     *Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Contacts    []Contact  `gorm:"foreignKey:ClientID" json:"contacts,omitempty"`
}

type Contact struct {
	Base
	FirstName string     `gorm:"type:varchar(150)" json:"first_name"`
	LastName  string     `gorm:"type:varchar(150)" json:"last_name"`
	Email     string     `gorm:"type:varchar(255)" json:"email"`
	Phone     string     `gorm:"type:varchar(50)" json:"phone"`
	ClientID  *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Client    *Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

// Project groups work for a client. DefaultTask is the first choice when a
// time entry on this project is saved without a task.
type Project struct {
	Base
	Name          string     `gorm:"type:varchar(300);not null" json:"name"`
	Code          *int       `json:"code"`
	Description   string     `gorm:"type:text" json:"description"`
	ClientID      *uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	Client        *Client    `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	DefaultTaskID *uuid.UUID `gorm:"type:uuid;index" json:"default_task_id"`
	DefaultTask   *Task      `gorm:"foreignKey:DefaultTaskID" json:"default_task,omitempty"`
	Team          []User     `gorm:"many2many:project_team;" json:"team,omitempty"`
	StartDate     *time.Time `json:"start_date"`
	EndDate       *time.Time `json:"end_date"`
}

// Task is a billable activity. SystemKey is set only on the process-wide
// Default Task so it can be found and kept unique.
type Task struct {
	Base
	Name        string              `gorm:"type:varchar(300);not null" json:"name"`
	BillingRate decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"billing_rate"`
	Unit        decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"unit"`
	SystemKey   *string             `gorm:"type:varchar(64);uniqueIndex" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.Unit.IsZero() {
		t.Unit = decimal.NewFromInt(1)
	}
	return t.Base.BeforeCreate(tx)
}

// IsDefault reports whether t is the process-wide Default Task.
func (t *Task) IsDefault() bool {
	return t.SystemKey != nil && *t.SystemKey == DefaultTaskKey
}

// DefaultTaskKey marks the process-wide Default Task.
const DefaultTaskKey = "default-task"
