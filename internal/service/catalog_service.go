package service

import (
	"context"
	"fmt"
	"strings"

	"portal/internal/apperror"
	"portal/internal/model"
	"portal/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---
//
// Catalog payloads use pointer fields: a nil field is left unchanged on
// update, and an empty string clears an optional reference or date.

type CompanyRequest struct {
	Name        *string `json:"name" example:"Acme Holdings"`
	Description *string `json:"description"`
	Archived    *bool   `json:"archived"`
}

type ClientRequest struct {
	Name        *string `json:"name" example:"Acme"`
	Description *string `json:"description"`
	CompanyID   *string `json:"company_id"`
	Archived    *bool   `json:"archived"`
}

type ContactRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	ClientID  *string `json:"client_id"`
	Archived  *bool   `json:"archived"`
}

type ProjectRequest struct {
	Name          *string   `json:"name" example:"Website rebuild"`
	Code          *int      `json:"code"`
	Description   *string   `json:"description"`
	ClientID      *string   `json:"client_id"`
	DefaultTaskID *string   `json:"default_task_id"`
	StartDate     *string   `json:"start_date"`
	EndDate       *string   `json:"end_date"`
	TeamIDs       *[]string `json:"team_ids"`
	Archived      *bool     `json:"archived"`
}

type TaskRequest struct {
	Name        *string `json:"name" example:"Development"`
	BillingRate *string `json:"billing_rate" example:"100.00"`
	Unit        *string `json:"unit" example:"1"`
	Archived    *bool   `json:"archived"`
}

// --- Interface ---

// CatalogService manages the reference records time entries and invoices
// point at. Writes require a superuser; reads are open to every user.
type CatalogService interface {
	CreateCompany(ctx context.Context, p Principal, req CompanyRequest) (*model.Company, error)
	UpdateCompany(ctx context.Context, p Principal, id string, req CompanyRequest) (*model.Company, error)
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	ListCompanies(ctx context.Context, opts repository.ListOptions) ([]model.Company, int64, error)
	DeleteCompany(ctx context.Context, p Principal, id string) error

	CreateClient(ctx context.Context, p Principal, req ClientRequest) (*model.Client, error)
	UpdateClient(ctx context.Context, p Principal, id string, req ClientRequest) (*model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context, opts repository.ListOptions) ([]model.Client, int64, error)
	DeleteClient(ctx context.Context, p Principal, id string) error

	CreateContact(ctx context.Context, p Principal, req ContactRequest) (*model.Contact, error)
	UpdateContact(ctx context.Context, p Principal, id string, req ContactRequest) (*model.Contact, error)
	GetContact(ctx context.Context, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, opts repository.ListOptions) ([]model.Contact, int64, error)
	DeleteContact(ctx context.Context, p Principal, id string) error

	CreateProject(ctx context.Context, p Principal, req ProjectRequest) (*model.Project, error)
	UpdateProject(ctx context.Context, p Principal, id string, req ProjectRequest) (*model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjects(ctx context.Context, opts repository.ListOptions) ([]model.Project, int64, error)
	DeleteProject(ctx context.Context, p Principal, id string) error

	CreateTask(ctx context.Context, p Principal, req TaskRequest) (*model.Task, error)
	UpdateTask(ctx context.Context, p Principal, id string, req TaskRequest) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, opts repository.ListOptions) ([]model.Task, int64, error)
	// DeleteTask removes a task. Entries that used it fall back through the
	// default-task chain and are repriced.
	DeleteTask(ctx context.Context, p Principal, id string) error
}

type catalogService struct {
	companyRepo repository.CompanyRepository
	clientRepo  repository.ClientRepository
	contactRepo repository.ContactRepository
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	invoiceRepo repository.InvoiceRepository
	entryRepo   repository.TimeEntryRepository
	reportRepo  repository.ReportRepository
	entries     TimeEntryService
	txManager   repository.TransactionManager
}

func NewCatalogService(
	companyRepo repository.CompanyRepository,
	clientRepo repository.ClientRepository,
	contactRepo repository.ContactRepository,
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	invoiceRepo repository.InvoiceRepository,
	entryRepo repository.TimeEntryRepository,
	reportRepo repository.ReportRepository,
	entries TimeEntryService,
	txManager repository.TransactionManager,
) CatalogService {
	return &catalogService{
		companyRepo: companyRepo,
		clientRepo:  clientRepo,
		contactRepo: contactRepo,
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		invoiceRepo: invoiceRepo,
		entryRepo:   entryRepo,
		reportRepo:  reportRepo,
		entries:     entries,
		txManager:   txManager,
	}
}

func requireName(entity string, name *string) error {
	if name == nil || strings.TrimSpace(*name) == "" {
		return apperror.Validation(entity, "name is required")
	}
	return nil
}

// --- Company ---

func (s *catalogService) CreateCompany(ctx context.Context, p Principal, req CompanyRequest) (*model.Company, error) {
	if err := requireSuperuser(p, "company"); err != nil {
		return nil, err
	}
	if err := requireName("company", req.Name); err != nil {
		return nil, err
	}
	company := &model.Company{}
	applyCompany(company, req)
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}
	return s.companyRepo.Get(ctx, company.ID)
}

func (s *catalogService) UpdateCompany(ctx context.Context, p Principal, id string, req CompanyRequest) (*model.Company, error) {
	if err := requireSuperuser(p, "company"); err != nil {
		return nil, err
	}
	companyID, err := parseID("company", id)
	if err != nil {
		return nil, err
	}
	company, err := s.companyRepo.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := requireName("company", req.Name); err != nil {
			return nil, err
		}
	}
	applyCompany(company, req)
	if err := s.companyRepo.Save(ctx, company); err != nil {
		return nil, fmt.Errorf("update company: %w", err)
	}
	return company, nil
}

func applyCompany(c *model.Company, req CompanyRequest) {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Archived != nil {
		c.Archived = *req.Archived
	}
}

func (s *catalogService) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	companyID, err := parseID("company", id)
	if err != nil {
		return nil, err
	}
	return s.companyRepo.Get(ctx, companyID)
}

func (s *catalogService) ListCompanies(ctx context.Context, opts repository.ListOptions) ([]model.Company, int64, error) {
	return s.companyRepo.List(ctx, opts)
}

func (s *catalogService) DeleteCompany(ctx context.Context, p Principal, id string) error {
	if err := requireSuperuser(p, "company"); err != nil {
		return err
	}
	companyID, err := parseID("company", id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.ClearCompany(txCtx, companyID); err != nil {
			return err
		}
		return s.companyRepo.Delete(txCtx, companyID)
	})
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return nil
}

// --- Client ---

func (s *catalogService) CreateClient(ctx context.Context, p Principal, req ClientRequest) (*model.Client, error) {
	if err := requireSuperuser(p, "client"); err != nil {
		return nil, err
	}
	if err := requireName("client", req.Name); err != nil {
		return nil, err
	}
	client := &model.Client{}
	if err := applyClient(client, req); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("create client: %w", referenceError("client", "company", err))
	}
	return s.clientRepo.Get(ctx, client.ID)
}

func (s *catalogService) UpdateClient(ctx context.Context, p Principal, id string, req ClientRequest) (*model.Client, error) {
	if err := requireSuperuser(p, "client"); err != nil {
		return nil, err
	}
	clientID, err := parseID("client", id)
	if err != nil {
		return nil, err
	}
	client, err := s.clientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := requireName("client", req.Name); err != nil {
			return nil, err
		}
	}
	if err := applyClient(client, req); err != nil {
		return nil, err
	}
	client.Company = nil
	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, fmt.Errorf("update client: %w", referenceError("client", "company", err))
	}
	return s.clientRepo.Get(ctx, clientID)
}

func applyClient(c *model.Client, req ClientRequest) error {
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.CompanyID != nil {
		id, err := parseOptionalID("client", "company_id", req.CompanyID)
		if err != nil {
			return err
		}
		c.CompanyID = id
	}
	if req.Archived != nil {
		c.Archived = *req.Archived
	}
	return nil
}

func (s *catalogService) GetClient(ctx context.Context, id string) (*model.Client, error) {
	clientID, err := parseID("client", id)
	if err != nil {
		return nil, err
	}
	return s.clientRepo.Get(ctx, clientID)
}

func (s *catalogService) ListClients(ctx context.Context, opts repository.ListOptions) ([]model.Client, int64, error) {
	return s.clientRepo.List(ctx, opts)
}

func (s *catalogService) DeleteClient(ctx context.Context, p Principal, id string) error {
	if err := requireSuperuser(p, "client"); err != nil {
		return err
	}
	clientID, err := parseID("client", id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		steps := []func(context.Context, uuid.UUID) error{
			s.projectRepo.ClearClient,
			s.contactRepo.ClearClient,
			func(c context.Context, id uuid.UUID) error { return s.invoiceRepo.ClearReference(c, "client_id", id) },
			func(c context.Context, id uuid.UUID) error { return s.entryRepo.ClearReference(c, "client_id", id) },
			func(c context.Context, id uuid.UUID) error { return s.reportRepo.DeleteLinksTo(c, model.KindClient, id) },
			s.clientRepo.Delete,
		}
		for _, step := range steps {
			if err := step(txCtx, clientID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	return nil
}

// --- Contact ---

func (s *catalogService) CreateContact(ctx context.Context, p Principal, req ContactRequest) (*model.Contact, error) {
	if err := requireSuperuser(p, "contact"); err != nil {
		return nil, err
	}
	contact := &model.Contact{}
	if err := applyContact(contact, req); err != nil {
		return nil, err
	}
	if contact.FirstName == "" && contact.LastName == "" {
		return nil, apperror.Validation("contact", "a first or last name is required")
	}
	if err := s.contactRepo.Create(ctx, contact); err != nil {
		return nil, fmt.Errorf("create contact: %w", referenceError("contact", "client", err))
	}
	return contact, nil
}

func (s *catalogService) UpdateContact(ctx context.Context, p Principal, id string, req ContactRequest) (*model.Contact, error) {
	if err := requireSuperuser(p, "contact"); err != nil {
		return nil, err
	}
	contactID, err := parseID("contact", id)
	if err != nil {
		return nil, err
	}
	contact, err := s.contactRepo.Get(ctx, contactID)
	if err != nil {
		return nil, err
	}
	if err := applyContact(contact, req); err != nil {
		return nil, err
	}
	contact.Client = nil
	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, fmt.Errorf("update contact: %w", referenceError("contact", "client", err))
	}
	return contact, nil
}

func applyContact(c *model.Contact, req ContactRequest) error {
	if req.FirstName != nil {
		c.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		c.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		c.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		c.Phone = *req.Phone
	}
	if req.ClientID != nil {
		id, err := parseOptionalID("contact", "client_id", req.ClientID)
		if err != nil {
			return err
		}
		c.ClientID = id
	}
	if req.Archived != nil {
		c.Archived = *req.Archived
	}
	return nil
}

func (s *catalogService) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	contactID, err := parseID("contact", id)
	if err != nil {
		return nil, err
	}
	return s.contactRepo.Get(ctx, contactID)
}

func (s *catalogService) ListContacts(ctx context.Context, opts repository.ListOptions) ([]model.Contact, int64, error) {
	return s.contactRepo.List(ctx, opts)
}

func (s *catalogService) DeleteContact(ctx context.Context, p Principal, id string) error {
	if err := requireSuperuser(p, "contact"); err != nil {
		return err
	}
	contactID, err := parseID("contact", id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.reportRepo.DeleteLinksTo(txCtx, model.KindContact, contactID); err != nil {
			return err
		}
		return s.contactRepo.Delete(txCtx, contactID)
	})
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

// --- Project ---

func (s *catalogService) CreateProject(ctx context.Context, p Principal, req ProjectRequest) (*model.Project, error) {
	if err := requireSuperuser(p, "project"); err != nil {
		return nil, err
	}
	if err := requireName("project", req.Name); err != nil {
		return nil, err
	}
	project := &model.Project{}
	if err := applyProject(project, req); err != nil {
		return nil, err
	}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projectRepo.Create(txCtx, project); err != nil {
			return referenceError("project", "client or default task", err)
		}
		return s.replaceTeam(txCtx, project, req.TeamIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return s.projectRepo.Get(ctx, project.ID)
}

func (s *catalogService) UpdateProject(ctx context.Context, p Principal, id string, req ProjectRequest) (*model.Project, error) {
	if err := requireSuperuser(p, "project"); err != nil {
		return nil, err
	}
	projectID, err := parseID("project", id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := requireName("project", req.Name); err != nil {
			return nil, err
		}
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		project, err := s.projectRepo.Get(txCtx, projectID)
		if err != nil {
			return err
		}
		if err := applyProject(project, req); err != nil {
			return err
		}
		project.Client, project.DefaultTask, project.Team = nil, nil, nil
		if err := s.projectRepo.Save(txCtx, project); err != nil {
			return referenceError("project", "client or default task", err)
		}
		return s.replaceTeam(txCtx, project, req.TeamIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return s.projectRepo.Get(ctx, projectID)
}

func (s *catalogService) replaceTeam(ctx context.Context, project *model.Project, raw *[]string) error {
	if raw == nil {
		return nil
	}
	ids, err := parseIDs("project", "team_ids", *raw)
	if err != nil {
		return err
	}
	members, err := s.userRepo.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(members) != len(ids) {
		return apperror.Validation("project", "unknown team member")
	}
	return s.projectRepo.ReplaceTeam(ctx, project, members)
}

func applyProject(pr *model.Project, req ProjectRequest) error {
	var err error
	if req.Name != nil {
		pr.Name = strings.TrimSpace(*req.Name)
	}
	if req.Code != nil {
		pr.Code = req.Code
	}
	if req.Description != nil {
		pr.Description = *req.Description
	}
	if req.ClientID != nil {
		if pr.ClientID, err = parseOptionalID("project", "client_id", req.ClientID); err != nil {
			return err
		}
	}
	if req.DefaultTaskID != nil {
		if pr.DefaultTaskID, err = parseOptionalID("project", "default_task_id", req.DefaultTaskID); err != nil {
			return err
		}
	}
	if pr.StartDate, err = updateDate("project", "start_date", pr.StartDate, req.StartDate); err != nil {
		return err
	}
	if pr.EndDate, err = updateDate("project", "end_date", pr.EndDate, req.EndDate); err != nil {
		return err
	}
	if pr.StartDate != nil && pr.EndDate != nil && pr.EndDate.Before(*pr.StartDate) {
		return apperror.Validation("project", "end_date is before start_date")
	}
	if req.Archived != nil {
		pr.Archived = *req.Archived
	}
	return nil
}

func (s *catalogService) GetProject(ctx context.Context, id string) (*model.Project, error) {
	projectID, err := parseID("project", id)
	if err != nil {
		return nil, err
	}
	return s.projectRepo.Get(ctx, projectID)
}

func (s *catalogService) ListProjects(ctx context.Context, opts repository.ListOptions) ([]model.Project, int64, error) {
	return s.projectRepo.List(ctx, opts)
}

func (s *catalogService) DeleteProject(ctx context.Context, p Principal, id string) error {
	if err := requireSuperuser(p, "project"); err != nil {
		return err
	}
	projectID, err := parseID("project", id)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		steps := []func(context.Context, uuid.UUID) error{
			func(c context.Context, id uuid.UUID) error { return s.invoiceRepo.ClearReference(c, "project_id", id) },
			func(c context.Context, id uuid.UUID) error { return s.entryRepo.ClearReference(c, "project_id", id) },
			func(c context.Context, id uuid.UUID) error { return s.reportRepo.DeleteLinksTo(c, model.KindProject, id) },
			s.projectRepo.DeleteTeamLinks,
			s.projectRepo.Delete,
		}
		for _, step := range steps {
			if err := step(txCtx, projectID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// --- Task ---

func (s *catalogService) CreateTask(ctx context.Context, p Principal, req TaskRequest) (*model.Task, error) {
	if err := requireSuperuser(p, "task"); err != nil {
		return nil, err
	}
	if err := requireName("task", req.Name); err != nil {
		return nil, err
	}
	task := &model.Task{}
	if err := applyTask(task, req); err != nil {
		return nil, err
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// UpdateTask saves the task. A billing rate or unit change reprices every
// entry on the task, and through them their invoices.
func (s *catalogService) UpdateTask(ctx context.Context, p Principal, id string, req TaskRequest) (*model.Task, error) {
	if err := requireSuperuser(p, "task"); err != nil {
		return nil, err
	}
	taskID, err := parseID("task", id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := requireName("task", req.Name); err != nil {
			return nil, err
		}
	}

	ctx = WithPrincipal(ctx, p)
	var task *model.Task
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if task, err = s.taskRepo.Get(txCtx, taskID); err != nil {
			return err
		}
		if err := applyTask(task, req); err != nil {
			return err
		}
		if err := s.taskRepo.Save(txCtx, task); err != nil {
			return err
		}
		if req.BillingRate == nil && req.Unit == nil {
			return nil
		}
		affected, err := s.entryRepo.IDsByTask(txCtx, taskID)
		if err != nil {
			return err
		}
		return s.entries.ReapplyDefaults(txCtx, affected)
	})
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

func applyTask(t *model.Task, req TaskRequest) error {
	if req.Name != nil {
		t.Name = strings.TrimSpace(*req.Name)
	}
	if req.BillingRate != nil {
		rate, err := parseOptionalAmount("task", "billing_rate", req.BillingRate)
		if err != nil {
			return err
		}
		t.BillingRate = rate
	}
	if req.Unit != nil {
		unit, err := parseAmount("task", "unit", *req.Unit)
		if err != nil {
			return err
		}
		if !unit.IsPositive() {
			return apperror.Validation("task", "unit must be positive")
		}
		t.Unit = unit
	}
	if req.Archived != nil {
		t.Archived = *req.Archived
	}
	return nil
}

func (s *catalogService) GetTask(ctx context.Context, id string) (*model.Task, error) {
	taskID, err := parseID("task", id)
	if err != nil {
		return nil, err
	}
	return s.taskRepo.Get(ctx, taskID)
}

func (s *catalogService) ListTasks(ctx context.Context, opts repository.ListOptions) ([]model.Task, int64, error) {
	return s.taskRepo.List(ctx, opts)
}

func (s *catalogService) DeleteTask(ctx context.Context, p Principal, id string) error {
	if err := requireSuperuser(p, "task"); err != nil {
		return err
	}
	taskID, err := parseID("task", id)
	if err != nil {
		return err
	}

	ctx = WithPrincipal(ctx, p)
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		task, err := s.taskRepo.Get(txCtx, taskID)
		if err != nil {
			return err
		}
		if task.IsDefault() {
			return apperror.Validation("task", "the default task cannot be deleted")
		}
		affected, err := s.entryRepo.IDsByTask(txCtx, taskID)
		if err != nil {
			return err
		}

		steps := []func(context.Context, uuid.UUID) error{
			func(c context.Context, id uuid.UUID) error { return s.entryRepo.ClearReference(c, "task_id", id) },
			func(c context.Context, id uuid.UUID) error { return s.invoiceRepo.ClearReference(c, "task_id", id) },
			s.projectRepo.ClearDefaultTask,
			s.userRepo.ClearProfileDefaultTask,
			func(c context.Context, id uuid.UUID) error { return s.reportRepo.DeleteLinksTo(c, model.KindTask, id) },
			s.taskRepo.Delete,
		}
		for _, step := range steps {
			if err := step(txCtx, taskID); err != nil {
				return err
			}
		}
		return s.entries.ReapplyDefaults(txCtx, affected)
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
