package repository

import (
	"context"
	"fmt"
	"strings"

	"portal/internal/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultOrder is the listing order when the caller supplies none.
const DefaultOrder = "archived asc, created_at desc"

// ListOptions filters and pages a list query.
type ListOptions struct {
	Page  int
	Limit int
	// IncludeArchived returns archived rows too; they sort after live ones.
	IncludeArchived bool
	// OrderBy holds column names, "-" prefixed for descending. Unknown
	// columns are rejected.
	OrderBy []string
	// OwnerID restricts the result to rows whose user_id matches.
	OwnerID *uuid.UUID
	// Filters are equality filters on whitelisted columns.
	Filters map[string]interface{}
}

func (o ListOptions) offset() int {
	if o.Page < 1 {
		return 0
	}
	return (o.Page - 1) * o.limit()
}

func (o ListOptions) limit() int {
	if o.Limit < 1 {
		return 10
	}
	return o.Limit
}

// Store is the generic persistence contract shared by the entity repositories.
type Store[T any] interface {
	Create(ctx context.Context, entity *T) error
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, opts ListOptions) ([]T, int64, error)
}

type store[T any] struct {
	db      *gorm.DB
	entity  string
	preload []string
	// columns whitelists filter and order columns.
	columns    map[string]bool
	owned      bool
	archivable bool
}

func newStore[T any](db *gorm.DB, entity string, columns []string, preload ...string) store[T] {
	allowed := map[string]bool{"id": true, "archived": true, "created_at": true, "updated_at": true}
	owned := false
	for _, c := range columns {
		allowed[c] = true
		if c == "user_id" {
			owned = true
		}
	}
	return store[T]{db: db, entity: entity, preload: preload, columns: allowed, owned: owned, archivable: true}
}

// withoutArchive adapts the store to a table with no archived column.
func (s store[T]) withoutArchive() store[T] {
	delete(s.columns, "archived")
	s.archivable = false
	return s
}

func (s store[T]) conn(ctx context.Context) *gorm.DB {
	return GetDB(ctx, s.db)
}

func (s store[T]) withPreload(db *gorm.DB) *gorm.DB {
	for _, p := range s.preload {
		db = db.Preload(p)
	}
	return db
}

func (s store[T]) Create(ctx context.Context, entity *T) error {
	return apperror.FromDB(s.entity, s.conn(ctx).Omit(clause.Associations).Create(entity).Error)
}

func (s store[T]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := s.withPreload(s.conn(ctx)).First(&entity, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB(s.entity, err)
	}
	return &entity, nil
}

func (s store[T]) Save(ctx context.Context, entity *T) error {
	return apperror.FromDB(s.entity, s.conn(ctx).Omit(clause.Associations).Save(entity).Error)
}

func (s store[T]) Delete(ctx context.Context, id uuid.UUID) error {
	var entity T
	res := s.conn(ctx).Where("id = ?", id).Delete(&entity)
	if res.Error != nil {
		return apperror.FromDB(s.entity, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound(s.entity)
	}
	return nil
}

func (s store[T]) List(ctx context.Context, opts ListOptions) ([]T, int64, error) {
	var (
		items []T
		total int64
		zero  T
	)

	scoped, err := s.scope(s.conn(ctx).Model(&zero), opts)
	if err != nil {
		return nil, 0, err
	}
	query := scoped.Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.FromDB(s.entity, err)
	}

	order, err := s.order(opts.OrderBy)
	if err != nil {
		return nil, 0, err
	}
	err = s.withPreload(query).
		Order(order).
		Offset(opts.offset()).
		Limit(opts.limit()).
		Find(&items).Error
	if err != nil {
		return nil, 0, apperror.FromDB(s.entity, err)
	}
	return items, total, nil
}

func (s store[T]) scope(db *gorm.DB, opts ListOptions) (*gorm.DB, error) {
	if s.archivable && !opts.IncludeArchived {
		db = db.Where("archived = ?", false)
	}
	if opts.OwnerID != nil {
		if !s.owned {
			return nil, apperror.Validation(s.entity, "cannot be filtered by owner")
		}
		db = db.Where("user_id = ?", *opts.OwnerID)
	}
	for column, value := range opts.Filters {
		if !s.columns[column] {
			return nil, apperror.Validation(s.entity, fmt.Sprintf("unknown filter %q", column))
		}
		db = db.Where(clause.Eq{Column: clause.Column{Name: column}, Value: value})
	}
	return db, nil
}

func (s store[T]) order(fields []string) (string, error) {
	if len(fields) == 0 {
		if !s.archivable {
			return "created_at desc", nil
		}
		return DefaultOrder, nil
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		dir := "asc"
		if strings.HasPrefix(f, "-") {
			dir = "desc"
			f = f[1:]
		}
		if !s.columns[f] {
			return "", apperror.Validation(s.entity, fmt.Sprintf("unknown order field %q", f))
		}
		parts = append(parts, f+" "+dir)
	}
	return strings.Join(parts, ", "), nil
}

// clearReference nulls column on table wherever it points at id.
func clearReference(ctx context.Context, db *gorm.DB, table, column string, id uuid.UUID) error {
	return GetDB(ctx, db).Table(table).Where(column+" = ?", id).Update(column, nil).Error
}

// deleteLinks removes rows of a join table that reference id.
func deleteLinks(ctx context.Context, db *gorm.DB, table, column string, id uuid.UUID) error {
	return GetDB(ctx, db).Exec("DELETE FROM "+table+" WHERE "+column+" = ?", id).Error
}
