package service

import (
	"context"
	"fmt"
	"time"

	"portal/internal/apperror"
	"portal/internal/billing"
	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/money"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateTimeEntryRequest struct {
	UserID      *string `json:"user_id"`
	ClientID    *string `json:"client_id"`
	ProjectID   *string `json:"project_id"`
	TaskID      *string `json:"task_id"`
	InvoiceID   *string `json:"invoice_id"`
	Date        string  `json:"date" example:"2024-05-01"`
	Hours       string  `json:"hours" binding:"required" example:"1.5"`
	Description string  `json:"description"`
}

// UpdateTimeEntryRequest changes only the fields that are present. An empty
// string clears a reference; clearing the task re-runs the default-task
// fallback.
type UpdateTimeEntryRequest struct {
	UserID      *string `json:"user_id"`
	ClientID    *string `json:"client_id"`
	ProjectID   *string `json:"project_id"`
	TaskID      *string `json:"task_id"`
	InvoiceID   *string `json:"invoice_id"`
	Date        *string `json:"date"`
	Hours       *string `json:"hours"`
	Description *string `json:"description"`
	Archived    *bool   `json:"archived"`
}

type TimeEntryResponse struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	ClientID    *string `json:"client_id"`
	ProjectID   *string `json:"project_id"`
	TaskID      *string `json:"task_id"`
	TaskName    string  `json:"task_name,omitempty"`
	InvoiceID   *string `json:"invoice_id"`
	Date        string  `json:"date"`
	Hours       string  `json:"hours"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Cost        string  `json:"cost"`
	Net         string  `json:"net"`
	Archived    bool    `json:"archived"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// --- Interface ---

type TimeEntryService interface {
	Create(ctx context.Context, p Principal, req CreateTimeEntryRequest) (*TimeEntryResponse, error)
	Update(ctx context.Context, p Principal, id string, req UpdateTimeEntryRequest) (*TimeEntryResponse, error)
	Delete(ctx context.Context, p Principal, id string) error
	Get(ctx context.Context, p Principal, id string) (*TimeEntryResponse, error)
	List(ctx context.Context, p Principal, opts repository.ListOptions) ([]TimeEntryResponse, int64, error)
	// ReapplyDefaults re-runs both resolvers on the given entries and saves
	// them through the hook bus.
	ReapplyDefaults(ctx context.Context, ids []uuid.UUID) error
}

type timeEntryService struct {
	entries   repository.TimeEntryRepository
	users     repository.UserRepository
	projects  repository.ProjectRepository
	tasks     repository.TaskRepository
	invoices  repository.InvoiceRepository
	txManager repository.TransactionManager
	bus       *hooks.Bus
	rates     billing.RateResolver
}

func NewTimeEntryService(
	entries repository.TimeEntryRepository,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	tasks repository.TaskRepository,
	invoices repository.InvoiceRepository,
	txManager repository.TransactionManager,
	bus *hooks.Bus,
	rates billing.RateResolver,
) TimeEntryService {
	return &timeEntryService{
		entries:   entries,
		users:     users,
		projects:  projects,
		tasks:     tasks,
		invoices:  invoices,
		txManager: txManager,
		bus:       bus,
		rates:     rates,
	}
}

// --- Implementation ---

func (s *timeEntryService) Create(ctx context.Context, p Principal, req CreateTimeEntryRequest) (*TimeEntryResponse, error) {
	entry := &model.TimeEntry{UserID: p.ID, Description: req.Description}

	if req.UserID != nil && *req.UserID != "" {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return nil, apperror.Validation("time entry", "invalid user_id")
		}
		if userID != p.ID && !p.IsSuperuser {
			return nil, apperror.PermissionDenied("time entry", "cannot log time for another user")
		}
		entry.UserID = userID
	}
	if entry.UserID == uuid.Nil {
		return nil, apperror.Validation("time entry", "user is required")
	}

	hours, err := parseAmount("time entry", "hours", req.Hours)
	if err != nil {
		return nil, err
	}
	entry.Hours = hours

	entry.Date = time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		if entry.Date, err = parseDate("time entry", "date", req.Date); err != nil {
			return nil, err
		}
	}

	if entry.ClientID, err = parseOptionalID("time entry", "client_id", req.ClientID); err != nil {
		return nil, err
	}
	if entry.ProjectID, err = parseOptionalID("time entry", "project_id", req.ProjectID); err != nil {
		return nil, err
	}
	if entry.TaskID, err = parseOptionalID("time entry", "task_id", req.TaskID); err != nil {
		return nil, err
	}
	if entry.InvoiceID, err = parseOptionalID("time entry", "invoice_id", req.InvoiceID); err != nil {
		return nil, err
	}

	ctx = WithPrincipal(ctx, p)
	var saved *model.TimeEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.authorizeAttach(txCtx, p, entry.InvoiceID); err != nil {
			return err
		}
		if err := s.prepare(txCtx, entry); err != nil {
			return err
		}
		if err := s.entries.Create(txCtx, entry); err != nil {
			return err
		}
		err := s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindTimeEntry, ID: entry.ID, Entity: entry, Created: true})
		if err != nil {
			return err
		}
		saved, err = s.entries.Get(txCtx, entry.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create time entry: %w", err)
	}
	return toTimeEntryResponse(saved), nil
}

func (s *timeEntryService) Update(ctx context.Context, p Principal, id string, req UpdateTimeEntryRequest) (*TimeEntryResponse, error) {
	entryID, err := parseID("time entry", id)
	if err != nil {
		return nil, err
	}

	ctx = WithPrincipal(ctx, p)
	var saved *model.TimeEntry
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.entries.Get(txCtx, entryID)
		if err != nil {
			return err
		}
		if !p.CanAct(entry.UserID) {
			return apperror.PermissionDenied("time entry", "only the owner or a superuser may change it")
		}
		previous := *entry

		if err := applyTimeEntryUpdate(entry, p, req); err != nil {
			return err
		}
		if !sameID(previous.InvoiceID, entry.InvoiceID) {
			if err := s.authorizeAttach(txCtx, p, entry.InvoiceID); err != nil {
				return err
			}
		}
		// A new project brings its own client unless one was given.
		if req.ClientID == nil && !sameID(previous.ProjectID, entry.ProjectID) {
			entry.ClientID = nil
		}
		if err := s.prepare(txCtx, entry); err != nil {
			return err
		}
		if err := s.entries.Save(txCtx, entry); err != nil {
			return err
		}
		err = s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindTimeEntry, ID: entry.ID, Entity: entry, Previous: &previous})
		if err != nil {
			return err
		}
		saved, err = s.entries.Get(txCtx, entry.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update time entry: %w", err)
	}
	return toTimeEntryResponse(saved), nil
}

func applyTimeEntryUpdate(entry *model.TimeEntry, p Principal, req UpdateTimeEntryRequest) error {
	var err error
	if req.UserID != nil && *req.UserID != "" {
		userID, err := uuid.Parse(*req.UserID)
		if err != nil {
			return apperror.Validation("time entry", "invalid user_id")
		}
		if userID != entry.UserID && !p.IsSuperuser {
			return apperror.PermissionDenied("time entry", "cannot reassign to another user")
		}
		entry.UserID = userID
	}
	if req.ClientID != nil {
		if entry.ClientID, err = parseOptionalID("time entry", "client_id", req.ClientID); err != nil {
			return err
		}
	}
	if req.ProjectID != nil {
		if entry.ProjectID, err = parseOptionalID("time entry", "project_id", req.ProjectID); err != nil {
			return err
		}
	}
	if req.TaskID != nil {
		if entry.TaskID, err = parseOptionalID("time entry", "task_id", req.TaskID); err != nil {
			return err
		}
	}
	if req.InvoiceID != nil {
		if entry.InvoiceID, err = parseOptionalID("time entry", "invoice_id", req.InvoiceID); err != nil {
			return err
		}
	}
	if req.Date != nil {
		if entry.Date, err = parseDate("time entry", "date", *req.Date); err != nil {
			return err
		}
	}
	if req.Hours != nil {
		if entry.Hours, err = parseAmount("time entry", "hours", *req.Hours); err != nil {
			return err
		}
	}
	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.Archived != nil {
		entry.Archived = *req.Archived
	}
	return nil
}

func (s *timeEntryService) Delete(ctx context.Context, p Principal, id string) error {
	entryID, err := parseID("time entry", id)
	if err != nil {
		return err
	}

	ctx = WithPrincipal(ctx, p)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		entry, err := s.entries.Get(txCtx, entryID)
		if err != nil {
			return err
		}
		if !p.CanAct(entry.UserID) {
			return apperror.PermissionDenied("time entry", "only the owner or a superuser may delete it")
		}
		if err := s.entries.Delete(txCtx, entryID); err != nil {
			return err
		}
		return s.bus.AfterDelete(txCtx, hooks.Mutation{Kind: model.KindTimeEntry, ID: entryID, Entity: entry})
	})
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}
	return nil
}

func (s *timeEntryService) Get(ctx context.Context, p Principal, id string) (*TimeEntryResponse, error) {
	entryID, err := parseID("time entry", id)
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !p.CanAct(entry.UserID) {
		return nil, apperror.PermissionDenied("time entry", "only the owner or a superuser may view it")
	}
	return toTimeEntryResponse(entry), nil
}

func (s *timeEntryService) List(ctx context.Context, p Principal, opts repository.ListOptions) ([]TimeEntryResponse, int64, error) {
	opts.OwnerID = p.ownerScope()
	entries, total, err := s.entries.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	res := make([]TimeEntryResponse, 0, len(entries))
	for i := range entries {
		res = append(res, *toTimeEntryResponse(&entries[i]))
	}
	return res, total, nil
}

func (s *timeEntryService) ReapplyDefaults(ctx context.Context, ids []uuid.UUID) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, id := range ids {
			entry, err := s.entries.Get(txCtx, id)
			if err != nil {
				return err
			}
			previous := *entry
			if err := s.prepare(txCtx, entry); err != nil {
				return err
			}
			if err := s.entries.Save(txCtx, entry); err != nil {
				return err
			}
			err = s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindTimeEntry, ID: id, Entity: entry, Previous: &previous})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// authorizeAttach checks that p may put time on the invoice. An invoice
// without an issuer is shared; an issued one takes time only from its issuer
// or a superuser.
func (s *timeEntryService) authorizeAttach(ctx context.Context, p Principal, invoiceID *uuid.UUID) error {
	if invoiceID == nil || p.IsSuperuser {
		return nil
	}
	invoice, err := s.invoices.GetWithIssuer(ctx, *invoiceID)
	if err != nil {
		return referenceError("time entry", "invoice", err)
	}
	if invoice.UserID == nil {
		return nil
	}
	if err := authorizeInvoice(p, invoice); err != nil {
		return apperror.PermissionDenied("time entry", "cannot log time on another user's invoice")
	}
	return nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// prepare validates the entry, fills its task through the default-task
// fallback and prices it.
func (s *timeEntryService) prepare(ctx context.Context, entry *model.TimeEntry) error {
	if entry.Hours.IsNegative() {
		return apperror.Validation("time entry", "hours must not be negative")
	}
	entry.Hours = money.Round(entry.Hours)

	user, err := s.users.GetWithProfile(ctx, entry.UserID)
	if err != nil {
		return referenceError("time entry", "user", err)
	}
	entry.User = user

	var project *model.Project
	if entry.ProjectID != nil {
		if project, err = s.projects.Get(ctx, *entry.ProjectID); err != nil {
			return referenceError("time entry", "project", err)
		}
		if entry.ClientID == nil {
			entry.ClientID = project.ClientID
		}
	}

	if entry.TaskID == nil {
		entry.TaskID = billing.PickDefaultTask(project, user.Profile)
		if entry.TaskID == nil {
			task, err := s.tasks.EnsureDefault(ctx, billing.NewDefaultTask)
			if err != nil {
				return err
			}
			entry.TaskID = &task.ID
		}
	}
	if entry.Task, err = s.tasks.Get(ctx, *entry.TaskID); err != nil {
		return referenceError("time entry", "task", err)
	}

	var invoice *model.Invoice
	if entry.InvoiceID != nil {
		if invoice, err = s.invoices.GetWithIssuer(ctx, *entry.InvoiceID); err != nil {
			return referenceError("time entry", "invoice", err)
		}
	}
	s.rates.Apply(entry, invoice)

	entry.Project, entry.Client, entry.Invoice = nil, nil, nil
	return nil
}

// referenceError turns a missing referenced record into a validation error
// on the referring entity.
func referenceError(entity, ref string, err error) error {
	if apperror.Is(err, apperror.KindNotFound) {
		return apperror.Validation(entity, "unknown "+ref)
	}
	return err
}

func toTimeEntryResponse(e *model.TimeEntry) *TimeEntryResponse {
	res := &TimeEntryResponse{
		ID:          e.ID.String(),
		UserID:      e.UserID.String(),
		ClientID:    formatID(e.ClientID),
		ProjectID:   formatID(e.ProjectID),
		TaskID:      formatID(e.TaskID),
		InvoiceID:   formatID(e.InvoiceID),
		Date:        e.Date.Format(dateLayout),
		Hours:       money.String(e.Hours),
		Description: e.Description,
		Amount:      money.String(e.Amount),
		Cost:        money.String(e.Cost),
		Net:         money.String(e.Net),
		Archived:    e.Archived,
		CreatedAt:   formatTimestamp(e.CreatedAt),
		UpdatedAt:   formatTimestamp(e.UpdatedAt),
	}
	if e.Task != nil {
		res.TaskName = e.Task.Name
	}
	return res
}
