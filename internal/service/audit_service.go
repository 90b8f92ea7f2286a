package service

import (
	"context"
	"encoding/json"

	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Username   string          `json:"username"`
	Action     string          `json:"action"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, p Principal, opts repository.ListOptions) ([]AuditLogResponse, int64, error)
	// Register records billing mutations through the hook bus.
	Register(bus *hooks.Bus)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) Register(bus *hooks.Bus) {
	for _, kind := range []string{model.KindTimeEntry, model.KindInvoice, model.KindReport} {
		bus.OnAfterSave(kind, s.onSave)
		bus.OnAfterDelete(kind, s.onDelete)
	}
}

func (s *auditService) onSave(ctx context.Context, m hooks.Mutation) error {
	action := model.ActionUpdate
	if m.Created {
		action = model.ActionCreate
	}
	return s.record(ctx, action, m)
}

func (s *auditService) onDelete(ctx context.Context, m hooks.Mutation) error {
	return s.record(ctx, model.ActionDelete, m)
}

// record writes the log row in the caller's transaction, attributed to the
// principal carried on ctx.
func (s *auditService) record(ctx context.Context, action string, m hooks.Mutation) error {
	entry := &model.AuditLog{
		Action:     action,
		EntityKind: m.Kind,
		EntityID:   m.ID.String(),
	}
	if p, ok := PrincipalFrom(ctx); ok {
		entry.UserID = p.actorID()
	}
	if details := auditDetails(m.Entity); details != nil {
		entry.Details = details
	}
	return s.auditRepo.Log(ctx, entry)
}

func auditDetails(entity any) []byte {
	var details map[string]any
	switch e := entity.(type) {
	case *model.TimeEntry:
		details = map[string]any{"hours": e.Hours.String(), "invoice_id": formatID(e.InvoiceID), "task_id": formatID(e.TaskID)}
	case *model.Invoice:
		details = map[string]any{"invoice_number": e.InvoiceNumber, "subject": e.Subject, "doc_type": e.DocType}
	case *model.Report:
		details = map[string]any{"name": e.Name}
	default:
		return nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	return b
}

// GetAuditLogs returns the newest entries first unless opts orders them.
// Superuser only.
func (s *auditService) GetAuditLogs(ctx context.Context, p Principal, opts repository.ListOptions) ([]AuditLogResponse, int64, error) {
	if err := requireSuperuser(p, "audit log"); err != nil {
		return nil, 0, err
	}
	logs, total, err := s.auditRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityKind: l.EntityKind,
			EntityID:   l.EntityID,
			Details:    json.RawMessage(l.Details),
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}
