package service

import (
	"fmt"
	"time"

	"portal/internal/apperror"
	"portal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// parseID parses a required identifier.
func parseID(entity, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.NotFound(entity)
	}
	return id, nil
}

// parseOptionalID parses an optional reference. Nil or empty means "none".
func parseOptionalID(entity, field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apperror.Validation(entity, fmt.Sprintf("invalid %s", field))
	}
	return &id, nil
}

// parseIDs parses a list of ids, dropping repeats and keeping first-seen
// order.
func parseIDs(entity, field string, raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]struct{}, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, apperror.Validation(entity, fmt.Sprintf("invalid %s", field))
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDate(entity, field, raw string) (time.Time, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperror.Validation(entity, fmt.Sprintf("%s must be YYYY-MM-DD", field))
	}
	return t, nil
}

func parseOptionalDate(entity, field string, raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseDate(entity, field, *raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// updateDate returns current when raw is absent and the parsed value otherwise.
func updateDate(entity, field string, current *time.Time, raw *string) (*time.Time, error) {
	if raw == nil {
		return current, nil
	}
	return parseOptionalDate(entity, field, raw)
}

func parseAmount(entity, field, raw string) (decimal.Decimal, error) {
	d, err := money.Parse(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation(entity, fmt.Sprintf("invalid %s", field))
	}
	return d, nil
}

func parseOptionalAmount(entity, field string, raw *string) (decimal.NullDecimal, error) {
	if raw == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := money.ParseNull(*raw)
	if err != nil {
		return decimal.NullDecimal{}, apperror.Validation(entity, fmt.Sprintf("invalid %s", field))
	}
	if d.Valid && d.Decimal.IsNegative() {
		return decimal.NullDecimal{}, apperror.Validation(entity, fmt.Sprintf("%s must not be negative", field))
	}
	return d, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

func formatID(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
