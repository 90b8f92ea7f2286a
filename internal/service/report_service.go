package service

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"portal/internal/apperror"
	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"
	"portal/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// --- DTOs ---

type CreateReportRequest struct {
	Name string `json:"name" binding:"required" example:"May 2024"`
	Date string `json:"date" example:"2024-05-31"`
	// InvoiceIDs selects the invoices to roll up. Empty means every
	// non-archived invoice.
	InvoiceIDs []string `json:"invoice_ids"`
}

type ReportResponse struct {
	ID         string                               `json:"id"`
	Name       string                               `json:"name"`
	Date       *string                              `json:"date"`
	UserID     *string                              `json:"user_id"`
	Hours      string                               `json:"hours"`
	Amount     string                               `json:"amount"`
	Cost       string                               `json:"cost"`
	Net        string                               `json:"net"`
	Team       map[string]map[string]model.TeamLine `json:"team"`
	InvoiceIDs []string                             `json:"invoice_ids"`
	Archived   bool                                 `json:"archived"`
	CreatedAt  string                               `json:"created_at"`
}

// --- Interface ---

type ReportService interface {
	Create(ctx context.Context, p Principal, req CreateReportRequest) (*ReportResponse, error)
	// Build recomputes the report's totals, team rollup and snapshot
	// associations from its invoices. Running it twice on unchanged data
	// writes identical values.
	Build(ctx context.Context, p Principal, id string) (*ReportResponse, error)
	Get(ctx context.Context, p Principal, id string) (*ReportResponse, error)
	List(ctx context.Context, p Principal, opts repository.ListOptions) ([]ReportResponse, int64, error)
	Delete(ctx context.Context, p Principal, id string) error
}

type ReportOptions struct {
	// ExcludeArchived leaves archived invoices and entries out of the totals.
	ExcludeArchived bool
}

type reportService struct {
	reportRepo  repository.ReportRepository
	invoiceRepo repository.InvoiceRepository
	entryRepo   repository.TimeEntryRepository
	projectRepo repository.ProjectRepository
	clientRepo  repository.ClientRepository
	contactRepo repository.ContactRepository
	taskRepo    repository.TaskRepository
	txManager   repository.TransactionManager
	bus         *hooks.Bus
	opts        ReportOptions
	logger      *zap.Logger
}

func NewReportService(
	reportRepo repository.ReportRepository,
	invoiceRepo repository.InvoiceRepository,
	entryRepo repository.TimeEntryRepository,
	projectRepo repository.ProjectRepository,
	clientRepo repository.ClientRepository,
	contactRepo repository.ContactRepository,
	taskRepo repository.TaskRepository,
	txManager repository.TransactionManager,
	bus *hooks.Bus,
	opts ReportOptions,
	logger *zap.Logger,
) ReportService {
	return &reportService{
		reportRepo:  reportRepo,
		invoiceRepo: invoiceRepo,
		entryRepo:   entryRepo,
		projectRepo: projectRepo,
		clientRepo:  clientRepo,
		contactRepo: contactRepo,
		taskRepo:    taskRepo,
		txManager:   txManager,
		bus:         bus,
		opts:        opts,
		logger:      logger,
	}
}

// --- Implementation ---

func (s *reportService) Create(ctx context.Context, p Principal, req CreateReportRequest) (*ReportResponse, error) {
	if err := requireSuperuser(p, "report"); err != nil {
		return nil, err
	}
	date, err := parseOptionalDate("report", "date", &req.Date)
	if err != nil {
		return nil, err
	}
	ids, err := parseIDs("report", "invoice_ids", req.InvoiceIDs)
	if err != nil {
		return nil, err
	}

	report := &model.Report{Name: req.Name, Date: date, UserID: p.actorID()}
	ctx = WithPrincipal(ctx, p)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if len(ids) == 0 {
			if ids, err = s.invoiceRepo.ListIDs(txCtx, false); err != nil {
				return err
			}
		}
		invoices, err := s.invoiceRepo.ListByIDs(txCtx, ids)
		if err != nil {
			return err
		}
		if len(invoices) != len(ids) {
			return apperror.Validation("report", "unknown invoice")
		}

		if err := s.reportRepo.Create(txCtx, report); err != nil {
			return err
		}
		if err := s.reportRepo.ReplaceInvoices(txCtx, report, invoices); err != nil {
			return err
		}
		if err := s.build(txCtx, report.ID); err != nil {
			return err
		}
		return s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindReport, ID: report.ID, Entity: report, Created: true})
	})
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return s.load(ctx, report.ID)
}

func (s *reportService) Build(ctx context.Context, p Principal, id string) (*ReportResponse, error) {
	if err := requireSuperuser(p, "report"); err != nil {
		return nil, err
	}
	reportID, err := parseID("report", id)
	if err != nil {
		return nil, err
	}

	ctx = WithPrincipal(ctx, p)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.build(txCtx, reportID); err != nil {
			return err
		}
		return s.bus.AfterSave(txCtx, hooks.Mutation{Kind: model.KindReport, ID: reportID})
	})
	if err != nil {
		return nil, fmt.Errorf("build report: %w", err)
	}
	return s.load(ctx, reportID)
}

// build is the read-only rollup over the report's invoices followed by one
// write of the report row and its snapshot links.
func (s *reportService) build(ctx context.Context, reportID uuid.UUID) error {
	report, err := s.reportRepo.GetWithInvoices(ctx, reportID)
	if err != nil {
		return err
	}

	var (
		hours, amounts, costs []decimal.Decimal
		projectIDs, clientIDs []uuid.UUID
		taskIDs               []uuid.UUID
		seen                  = map[uuid.UUID]bool{}
	)
	collect := func(dst *[]uuid.UUID, id *uuid.UUID) {
		if id != nil && !seen[*id] {
			seen[*id] = true
			*dst = append(*dst, *id)
		}
	}
	for _, inv := range report.Invoices {
		collect(&projectIDs, inv.ProjectID)
		collect(&clientIDs, inv.ClientID)
		collect(&taskIDs, inv.TaskID)
		if s.opts.ExcludeArchived && inv.Archived {
			continue
		}
		hours = append(hours, inv.Hours)
		amounts = append(amounts, inv.Amount)
		costs = append(costs, inv.Cost)
	}
	report.Hours = money.Sum(hours...)
	report.Amount = money.Sum(amounts...)
	report.Cost = money.Sum(costs...)
	report.Net = money.Round(report.Amount.Sub(report.Cost))

	projects, err := s.projectRepo.ListByIDs(ctx, projectIDs)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*model.Project, len(projects))
	for i := range projects {
		byID[projects[i].ID] = &projects[i]
	}

	team := map[string]map[string]model.TeamLine{}
	ordered := make([]model.Project, 0, len(projectIDs))
	for _, pid := range projectIDs {
		project, ok := byID[pid]
		if !ok {
			continue
		}
		ordered = append(ordered, *project)
		lines, ok := team[project.Name]
		if !ok {
			lines = map[string]model.TeamLine{}
			team[project.Name] = lines
		}
		var taskRate decimal.NullDecimal
		if project.DefaultTask != nil {
			taskRate = project.DefaultTask.BillingRate
		}
		for _, member := range project.Team {
			line, err := s.teamLine(ctx, member, project.ID, taskRate)
			if err != nil {
				return err
			}
			lines[member.Username] = line
		}
	}

	encoded, err := json.Marshal(team)
	if err != nil {
		return fmt.Errorf("encode team: %w", err)
	}
	report.Team = datatypes.JSON(encoded)

	snap, err := s.snapshot(ctx, report.Invoices, ordered, clientIDs, taskIDs)
	if err != nil {
		return err
	}
	if err := s.reportRepo.ReplaceSnapshot(ctx, report, snap); err != nil {
		return err
	}
	if err := s.reportRepo.SaveBuild(ctx, report); err != nil {
		return err
	}

	s.logger.Debug("report built",
		zap.String("report_id", reportID.String()),
		zap.Int("invoices", len(report.Invoices)),
		zap.Int("projects", len(ordered)),
	)
	return nil
}

func (s *reportService) teamLine(ctx context.Context, member model.User, projectID uuid.UUID, taskRate decimal.NullDecimal) (model.TeamLine, error) {
	hours, err := s.entryRepo.ApprovedHours(ctx, member.ID, projectID, s.opts.ExcludeArchived)
	if err != nil {
		return model.TeamLine{}, err
	}
	var costRate decimal.NullDecimal
	if member.Profile != nil {
		costRate = member.Profile.CostRate
	}

	gross := money.MulNull(taskRate, hours)
	cost := money.MulNull(costRate, hours)
	net := decimal.Zero
	if !gross.IsZero() && !cost.IsZero() {
		net = money.Round(gross.Sub(cost))
	}
	return model.TeamLine{
		Rate:  money.String(money.OrZero(costRate)),
		Hours: money.String(hours),
		Gross: money.String(gross),
		Cost:  money.String(cost),
		Net:   money.String(net),
	}, nil
}

func (s *reportService) snapshot(ctx context.Context, invoices []model.Invoice, projects []model.Project, clientIDs, taskIDs []uuid.UUID) (repository.ReportSnapshot, error) {
	snap := repository.ReportSnapshot{Invoices: invoices, Projects: projects}
	for _, project := range projects {
		if project.ClientID != nil && !slices.Contains(clientIDs, *project.ClientID) {
			clientIDs = append(clientIDs, *project.ClientID)
		}
	}
	var err error
	if snap.Clients, err = s.clientRepo.ListByIDs(ctx, clientIDs); err != nil {
		return snap, err
	}
	if snap.Tasks, err = s.taskRepo.ListByIDs(ctx, taskIDs); err != nil {
		return snap, err
	}
	if snap.Contacts, err = s.contactRepo.ListByClients(ctx, clientIDs); err != nil {
		return snap, err
	}
	for i := range snap.Projects {
		snap.Projects[i].Team = nil
		snap.Projects[i].DefaultTask = nil
	}
	return snap, nil
}

func (s *reportService) Get(ctx context.Context, p Principal, id string) (*ReportResponse, error) {
	reportID, err := parseID("report", id)
	if err != nil {
		return nil, err
	}
	res, err := s.load(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !p.IsSuperuser && (res.UserID == nil || *res.UserID != p.ID.String()) {
		return nil, apperror.PermissionDenied("report", "only the author or a superuser may view it")
	}
	return res, nil
}

func (s *reportService) List(ctx context.Context, p Principal, opts repository.ListOptions) ([]ReportResponse, int64, error) {
	opts.OwnerID = p.ownerScope()
	reports, total, err := s.reportRepo.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	res := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		r, err := toReportResponse(&reports[i])
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *r)
	}
	return res, total, nil
}

func (s *reportService) Delete(ctx context.Context, p Principal, id string) error {
	if err := requireSuperuser(p, "report"); err != nil {
		return err
	}
	reportID, err := parseID("report", id)
	if err != nil {
		return err
	}

	ctx = WithPrincipal(ctx, p)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.DeleteLinks(txCtx, reportID); err != nil {
			return err
		}
		if err := s.reportRepo.Delete(txCtx, reportID); err != nil {
			return err
		}
		return s.bus.AfterDelete(txCtx, hooks.Mutation{Kind: model.KindReport, ID: reportID})
	})
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

func (s *reportService) load(ctx context.Context, id uuid.UUID) (*ReportResponse, error) {
	report, err := s.reportRepo.GetWithInvoices(ctx, id)
	if err != nil {
		return nil, err
	}
	return toReportResponse(report)
}

func toReportResponse(r *model.Report) (*ReportResponse, error) {
	res := &ReportResponse{
		ID:         r.ID.String(),
		Name:       r.Name,
		Date:       formatDate(r.Date),
		UserID:     formatID(r.UserID),
		Hours:      money.String(r.Hours),
		Amount:     money.String(r.Amount),
		Cost:       money.String(r.Cost),
		Net:        money.String(r.Net),
		Team:       map[string]map[string]model.TeamLine{},
		InvoiceIDs: make([]string, 0, len(r.Invoices)),
		Archived:   r.Archived,
		CreatedAt:  formatTimestamp(r.CreatedAt),
	}
	if len(r.Team) > 0 {
		if err := json.Unmarshal(r.Team, &res.Team); err != nil {
			return nil, apperror.Storage("report", fmt.Errorf("decode team of report %s: %w", r.ID, err))
		}
	}
	for _, inv := range r.Invoices {
		res.InvoiceIDs = append(res.InvoiceIDs, inv.ID.String())
	}
	return res, nil
}
