package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a person who can sign in and log time.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"username"`
	Email       string    `gorm:"type:varchar(255);index" json:"email"`
	DisplayName string    `gorm:"type:varchar(255)" json:"display_name"`
	Password    string    `gorm:"type:varchar(255)" json:"-"` // empty for externally authenticated users
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	IsSuperuser bool      `gorm:"not null;default:false" json:"is_superuser"`
	Profile     *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Profile holds per-user billing data and preferences. It is created lazily
// on the first authenticated session.
type Profile struct {
	Base
	UserID        uuid.UUID           `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CostRate      decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"cost_rate"`
	DefaultTaskID *uuid.UUID          `gorm:"type:uuid;index" json:"default_task_id"`
	DefaultTask   *Task               `gorm:"foreignKey:DefaultTaskID" json:"default_task,omitempty"`
	Mail          bool                `gorm:"not null;default:false" json:"mail"`
	PageSize      int                 `gorm:"not null;default:10" json:"page_size"`
}
