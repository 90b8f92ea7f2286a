package repository

import (
	"context"
	"fmt"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NoteRepository interface {
	Store[model.Note]
	ListAttached(ctx context.Context, kind string, id uuid.UUID, ownerID *uuid.UUID) ([]model.Note, error)
	// TargetExists reports whether a record of kind with id exists.
	TargetExists(ctx context.Context, kind string, id uuid.UUID) (bool, error)
}

type noteRepository struct {
	store[model.Note]
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{newStore[model.Note](db, "note", []string{"title", "user_id", "attached_kind", "attached_id"})}
}

// attachableTables maps an entity kind to its table.
var attachableTables = map[string]string{
	model.KindUser:      "users",
	model.KindCompany:   "companies",
	model.KindClient:    "clients",
	model.KindContact:   "contacts",
	model.KindProject:   "projects",
	model.KindTask:      "tasks",
	model.KindTimeEntry: "time_entries",
	model.KindInvoice:   "invoices",
	model.KindReport:    "reports",
}

// Attachable reports whether notes may attach to kind.
func Attachable(kind string) bool {
	_, ok := attachableTables[kind]
	return ok
}

func (r *noteRepository) ListAttached(ctx context.Context, kind string, id uuid.UUID, ownerID *uuid.UUID) ([]model.Note, error) {
	var notes []model.Note
	db := r.conn(ctx).Where("attached_kind = ? AND attached_id = ?", kind, id)
	if ownerID != nil {
		db = db.Where("user_id = ?", *ownerID)
	}
	err := db.Order(DefaultOrder).Find(&notes).Error
	return notes, apperror.FromDB("note", err)
}

func (r *noteRepository) TargetExists(ctx context.Context, kind string, id uuid.UUID) (bool, error) {
	table, ok := attachableTables[kind]
	if !ok {
		return false, apperror.Validation("note", fmt.Sprintf("cannot attach to %q", kind))
	}
	var count int64
	if err := r.conn(ctx).Table(table).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperror.FromDB("note", err)
	}
	return count > 0, nil
}
