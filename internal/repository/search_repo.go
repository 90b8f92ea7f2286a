package repository

import (
	"context"
	"strings"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SearchHit is one matching record.
type SearchHit struct {
	Kind     string `json:"kind"`
	ID       string `json:"id"`
	Label    string `json:"label"`
	Archived bool   `json:"archived"`
}

// searchable describes the text fields scanned for one entity kind.
type searchable struct {
	kind   string
	table  string
	label  string
	fields []string
	owned  bool
	noArch bool
}

// searchKinds lists the kinds in result order.
var searchKinds = []searchable{
	{kind: model.KindClient, table: "clients", label: "name", fields: []string{"name", "description"}},
	{kind: model.KindCompany, table: "companies", label: "name", fields: []string{"name", "description"}},
	{kind: model.KindContact, table: "contacts", label: "email", fields: []string{"first_name", "last_name", "email", "phone"}},
	{kind: model.KindInvoice, table: "invoices", label: "subject", fields: []string{"subject", "doc_type"}, owned: true},
	{kind: model.KindNote, table: "notes", label: "title", fields: []string{"title", "body"}, owned: true},
	{kind: model.KindProject, table: "projects", label: "name", fields: []string{"name", "description"}},
	{kind: model.KindTask, table: "tasks", label: "name", fields: []string{"name"}},
	{kind: model.KindTimeEntry, table: "time_entries", label: "description", fields: []string{"description"}, owned: true},
	{kind: model.KindUser, table: "users", label: "username", fields: []string{"username", "email", "display_name"}, noArch: true},
}

type SearchRepository interface {
	// Search matches every term (AND) against any text field of each kind
	// (OR), case-insensitively. With ownerID set only owned kinds are
	// scanned, restricted to that owner.
	Search(ctx context.Context, terms []string, ownerID *uuid.UUID, perKind int) ([]SearchHit, error)
}

type searchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) Search(ctx context.Context, terms []string, ownerID *uuid.UUID, perKind int) ([]SearchHit, error) {
	hits := []SearchHit{}
	if len(terms) == 0 {
		return hits, nil
	}
	for _, k := range searchKinds {
		if ownerID != nil && !k.owned {
			continue
		}
		rows, err := r.searchKind(ctx, k, terms, ownerID, perKind)
		if err != nil {
			return nil, err
		}
		hits = append(hits, rows...)
	}
	return hits, nil
}

func (r *searchRepository) searchKind(ctx context.Context, k searchable, terms []string, ownerID *uuid.UUID, limit int) ([]SearchHit, error) {
	archived := "archived"
	if k.noArch {
		archived = "false"
	}
	db := GetDB(ctx, r.db).Table(k.table).
		Select("id, COALESCE(" + k.label + ", '') AS label, " + archived + " AS archived")

	for _, term := range terms {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		clauses := make([]string, len(k.fields))
		args := make([]interface{}, len(k.fields))
		for i, f := range k.fields {
			clauses[i] = "LOWER(COALESCE(" + f + ", '')) LIKE ? ESCAPE '\\'"
			args[i] = pattern
		}
		db = db.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}
	if ownerID != nil {
		db = db.Where("user_id = ?", *ownerID)
	}
	if limit > 0 {
		db = db.Limit(limit)
	}

	var rows []struct {
		ID       string
		Label    string
		Archived bool
	}
	if err := db.Order("created_at asc").Scan(&rows).Error; err != nil {
		return nil, apperror.FromDB("search", err)
	}
	hits := make([]SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, SearchHit{Kind: k.kind, ID: row.ID, Label: row.Label, Archived: row.Archived})
	}
	return hits, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
