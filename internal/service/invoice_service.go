package service

import (
	"context"
	"fmt"

	"portal/internal/apperror"
	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/money"
)

// --- DTOs ---

type CreateInvoiceRequest struct {
	Subject    string  `json:"subject"`
	DocType    string  `json:"doc_type" example:"Task Order"`
	ClientID   *string `json:"client_id"`
	ProjectID  *string `json:"project_id"`
	TaskID     *string `json:"task_id"`
	UserID     *string `json:"user_id"`
	IssueDate  *string `json:"issue_date" example:"2024-05-31"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	DueDate    *string `json:"due_date"`
	PaidAmount *string `json:"paid_amount"`
	Reset      bool    `json:"reset"`
}

// UpdateInvoiceRequest changes only the fields that are present. An empty
// string clears a reference, a date or the paid amount.
type UpdateInvoiceRequest struct {
	Subject    *string `json:"subject"`
	DocType    *string `json:"doc_type"`
	ClientID   *string `json:"client_id"`
	ProjectID  *string `json:"project_id"`
	TaskID     *string `json:"task_id"`
	UserID     *string `json:"user_id"`
	IssueDate  *string `json:"issue_date"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	DueDate    *string `json:"due_date"`
	PaidAmount *string `json:"paid_amount"`
	Reset      *bool   `json:"reset"`
	Archived   *bool   `json:"archived"`
}

type InvoiceResponse struct {
	ID            string  `json:"id"`
	InvoiceNumber int64   `json:"invoice_number"`
	Subject       string  `json:"subject"`
	DocType       string  `json:"doc_type"`
	ClientID      *string `json:"client_id"`
	ProjectID     *string `json:"project_id"`
	TaskID        *string `json:"task_id"`
	UserID        *string `json:"user_id"`
	IssueDate     *string `json:"issue_date"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	DueDate       *string `json:"due_date"`
	PaidAmount    *string `json:"paid_amount"`
	Amount        string  `json:"amount"`
	Cost          string  `json:"cost"`
	Net           string  `json:"net"`
	Hours         string  `json:"hours"`
	Balance       string  `json:"balance"`
	State         string  `json:"state"`
	Reset         bool    `json:"reset"`
	Archived      bool    `json:"archived"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// --- Interface ---

type InvoiceService interface {
	Create(ctx context.Context, p Principal, req CreateInvoiceRequest) (*InvoiceResponse, error)
	Update(ctx context.Context, p Principal, id string, req UpdateInvoiceRequest) (*InvoiceResponse, error)
	// Delete removes the invoice. With cascadeEntries its time entries are
	// deleted too; otherwise they are detached.
	Delete(ctx context.Context, p Principal, id string, cascadeEntries bool) error
	Get(ctx context.Context, p Principal, id string) (*InvoiceResponse, error)
	List(ctx context.Context, p Principal, opts repository.ListOptions) ([]InvoiceResponse, int64, error)
	Recompute(ctx context.Context, p Principal, id string) (*InvoiceResponse, error)
	// RecomputeAll recomputes every invoice, archived ones included, and
	// returns how many were processed.
	RecomputeAll(ctx context.Context, p Principal) (int, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	entryRepo   repository.TimeEntryRepository
	reportRepo  repository.ReportRepository
	aggregator  InvoiceAggregator
	txManager   repository.TransactionManager
	bus         *hooks.Bus
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	entryRepo repository.TimeEntryRepository,
	reportRepo repository.ReportRepository,
	aggregator InvoiceAggregator,
	txManager repository.TransactionManager,
	bus *hooks.Bus,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		entryRepo:   entryRepo,
		reportRepo:  reportRepo,
		aggregator:  aggregator,
		txManager:   txManager,
		bus:         bus,
	}
}

// --- Implementation ---

func (s *invoiceService) Create(ctx context.Context, p Principal, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	invoice := &model.Invoice{
		Subject: req.Subject,
		DocType: req.DocType,
		Reset:   req.Reset,
		UserID:  p.actorID(),
	}

	update := UpdateInvoiceRequest{
		ClientID:   req.ClientID,
		ProjectID:  req.ProjectID,
		TaskID:     req.TaskID,
		UserID:     req.UserID,
		IssueDate:  req.IssueDate,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		DueDate:    req.DueDate,
		PaidAmount: req.PaidAmount,
	}
	if err := applyInvoiceUpdate(invoice, p, update); err != nil {
		return nil, err
	}

	ctx = WithPrincipal(ctx, p)
	var saved *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, err := s.invoiceRepo.NextNumber(txCtx)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		if invoice.Subject == "" {
			invoice.Subject = model.DefaultSubject(number)
		}
		if err := s.invoiceRepo.Create(txCtx, invoice); err != nil {
			return referenceError("invoice", "reference", err)
		}
		err = s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindInvoice, ID: invoice.ID, Entity: invoice, Created: true})
		if err != nil {
			return err
		}
		saved, err = s.invoiceRepo.Get(txCtx, invoice.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return toInvoiceResponse(saved), nil
}

func (s *invoiceService) Update(ctx context.Context, p Principal, id string, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	invoiceID, err := parseID("invoice", id)
	if err != nil {
		return nil, err
	}

	ctx = WithPrincipal(ctx, p)
	var saved *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.Get(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if err := authorizeInvoice(p, invoice); err != nil {
			return err
		}
		previous := *invoice
		if err := applyInvoiceUpdate(invoice, p, req); err != nil {
			return err
		}
		invoice.Client, invoice.Project, invoice.Task, invoice.User = nil, nil, nil, nil
		if err := s.invoiceRepo.Save(txCtx, invoice); err != nil {
			return referenceError("invoice", "reference", err)
		}
		err = s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindInvoice, ID: invoice.ID, Entity: invoice, Previous: &previous})
		if err != nil {
			return err
		}
		saved, err = s.invoiceRepo.Get(txCtx, invoiceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	return toInvoiceResponse(saved), nil
}

func applyInvoiceUpdate(invoice *model.Invoice, p Principal, req UpdateInvoiceRequest) error {
	var err error
	if req.Subject != nil {
		invoice.Subject = *req.Subject
	}
	if req.DocType != nil {
		invoice.DocType = *req.DocType
	}
	if req.ClientID != nil {
		if invoice.ClientID, err = parseOptionalID("invoice", "client_id", req.ClientID); err != nil {
			return err
		}
	}
	if req.ProjectID != nil {
		if invoice.ProjectID, err = parseOptionalID("invoice", "project_id", req.ProjectID); err != nil {
			return err
		}
	}
	if req.TaskID != nil {
		if invoice.TaskID, err = parseOptionalID("invoice", "task_id", req.TaskID); err != nil {
			return err
		}
	}
	if req.UserID != nil {
		issuer, err := parseOptionalID("invoice", "user_id", req.UserID)
		if err != nil {
			return err
		}
		if !p.IsSuperuser && (issuer == nil || *issuer != p.ID) {
			return apperror.PermissionDenied("invoice", "only a superuser may set another issuer")
		}
		invoice.UserID = issuer
	}
	if invoice.IssueDate, err = updateDate("invoice", "issue_date", invoice.IssueDate, req.IssueDate); err != nil {
		return err
	}
	if invoice.StartDate, err = updateDate("invoice", "start_date", invoice.StartDate, req.StartDate); err != nil {
		return err
	}
	if invoice.EndDate, err = updateDate("invoice", "end_date", invoice.EndDate, req.EndDate); err != nil {
		return err
	}
	if invoice.DueDate, err = updateDate("invoice", "due_date", invoice.DueDate, req.DueDate); err != nil {
		return err
	}
	if req.PaidAmount != nil {
		if invoice.PaidAmount, err = parseOptionalAmount("invoice", "paid_amount", req.PaidAmount); err != nil {
			return err
		}
	}
	if req.Reset != nil {
		invoice.Reset = *req.Reset
	}
	if req.Archived != nil {
		invoice.Archived = *req.Archived
	}
	return nil
}

func (s *invoiceService) Delete(ctx context.Context, p Principal, id string, cascadeEntries bool) error {
	invoiceID, err := parseID("invoice", id)
	if err != nil {
		return err
	}

	ctx = WithPrincipal(ctx, p)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.Get(txCtx, invoiceID)
		if err != nil {
			return err
		}
		if err := authorizeInvoice(p, invoice); err != nil {
			return err
		}
		if cascadeEntries {
			err = s.entryRepo.DeleteByInvoice(txCtx, invoiceID)
		} else {
			err = s.entryRepo.DetachInvoice(txCtx, invoiceID)
		}
		if err != nil {
			return err
		}
		if err := s.reportRepo.DeleteLinksTo(txCtx, model.KindInvoice, invoiceID); err != nil {
			return err
		}
		if err := s.invoiceRepo.Delete(txCtx, invoiceID); err != nil {
			return err
		}
		return s.bus.AfterDelete(txCtx, hooks.Mutation{Kind: model.KindInvoice, ID: invoiceID, Entity: invoice})
	})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

func (s *invoiceService) Get(ctx context.Context, p Principal, id string) (*InvoiceResponse, error) {
	invoiceID, err := parseID("invoice", id)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := authorizeInvoice(p, invoice); err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) List(ctx context.Context, p Principal, opts repository.ListOptions) ([]InvoiceResponse, int64, error) {
	opts.OwnerID = p.ownerScope()
	invoices, total, err := s.invoiceRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	res := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		res = append(res, *toInvoiceResponse(&invoices[i]))
	}
	return res, total, nil
}

func (s *invoiceService) Recompute(ctx context.Context, p Principal, id string) (*InvoiceResponse, error) {
	invoiceID, err := parseID("invoice", id)
	if err != nil {
		return nil, err
	}
	invoice, err := s.invoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := authorizeInvoice(p, invoice); err != nil {
		return nil, err
	}
	if err := s.aggregator.Recompute(WithPrincipal(ctx, p), invoiceID); err != nil {
		return nil, fmt.Errorf("recompute invoice: %w", err)
	}
	if invoice, err = s.invoiceRepo.Get(ctx, invoiceID); err != nil {
		return nil, err
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) RecomputeAll(ctx context.Context, p Principal) (int, error) {
	if err := requireSuperuser(p, "invoice"); err != nil {
		return 0, err
	}
	ids, err := s.invoiceRepo.ListIDs(ctx, true)
	if err != nil {
		return 0, err
	}
	ctx = WithPrincipal(ctx, p)
	for i, id := range ids {
		if err := s.aggregator.Recompute(ctx, id); err != nil {
			return i, fmt.Errorf("recompute invoice %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func authorizeInvoice(p Principal, invoice *model.Invoice) error {
	if p.IsSuperuser {
		return nil
	}
	if invoice.UserID == nil || *invoice.UserID != p.ID {
		return apperror.PermissionDenied("invoice", "only the issuer or a superuser may access it")
	}
	return nil
}

func toInvoiceResponse(i *model.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:            i.ID.String(),
		InvoiceNumber: i.InvoiceNumber,
		Subject:       i.Subject,
		DocType:       i.DocType,
		ClientID:      formatID(i.ClientID),
		ProjectID:     formatID(i.ProjectID),
		TaskID:        formatID(i.TaskID),
		UserID:        formatID(i.UserID),
		IssueDate:     formatDate(i.IssueDate),
		StartDate:     formatDate(i.StartDate),
		EndDate:       formatDate(i.EndDate),
		DueDate:       formatDate(i.DueDate),
		PaidAmount:    money.NullString(i.PaidAmount),
		Amount:        money.String(i.Amount),
		Cost:          money.String(i.Cost),
		Net:           money.String(i.Net),
		Hours:         money.String(i.Hours),
		Balance:       money.String(i.Balance()),
		State:         i.State(),
		Reset:         i.Reset,
		Archived:      i.Archived,
		CreatedAt:     formatTimestamp(i.CreatedAt),
		UpdatedAt:     formatTimestamp(i.UpdatedAt),
	}
}
