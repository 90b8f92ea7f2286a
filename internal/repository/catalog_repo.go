package repository

import (
	"context"
	"errors"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompanyRepository interface {
	Store[model.Company]
}

type ClientRepository interface {
	Store[model.Client]
	ClearCompany(ctx context.Context, companyID uuid.UUID) error
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error)
}

type ContactRepository interface {
	Store[model.Contact]
	ClearClient(ctx context.Context, clientID uuid.UUID) error
	ListByClients(ctx context.Context, clientIDs []uuid.UUID) ([]model.Contact, error)
}

type ProjectRepository interface {
	Store[model.Project]
	ReplaceTeam(ctx context.Context, project *model.Project, members []model.User) error
	ClearClient(ctx context.Context, clientID uuid.UUID) error
	ClearDefaultTask(ctx context.Context, taskID uuid.UUID) error
	// ListByIDs returns the projects with team (ordered by username) and
	// default task loaded.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Project, error)
	DeleteTeamLinks(ctx context.Context, projectID uuid.UUID) error
}

type TaskRepository interface {
	Store[model.Task]
	// EnsureDefault returns the Default Task, creating it on first demand.
	EnsureDefault(ctx context.Context, build func() *model.Task) (*model.Task, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Task, error)
}

type companyRepository struct{ store[model.Company] }
type clientRepository struct{ store[model.Client] }
type contactRepository struct{ store[model.Contact] }
type projectRepository struct{ store[model.Project] }
type taskRepository struct{ store[model.Task] }

func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{newStore[model.Company](db, "company", []string{"name"})}
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{newStore[model.Client](db, "client", []string{"name", "company_id"}, "Company")}
}

func NewContactRepository(db *gorm.DB) ContactRepository {
	return &contactRepository{newStore[model.Contact](db, "contact", []string{"first_name", "last_name", "email", "client_id"})}
}

func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{newStore[model.Project](db, "project",
		[]string{"name", "code", "client_id", "default_task_id", "start_date", "end_date"},
		"Client", "DefaultTask", "Team")}
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{newStore[model.Task](db, "task", []string{"name"})}
}

func (r *clientRepository) ClearCompany(ctx context.Context, companyID uuid.UUID) error {
	return apperror.FromDB("client", clearReference(ctx, r.db, "clients", "company_id", companyID))
}

func (r *clientRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error) {
	var clients []model.Client
	if len(ids) == 0 {
		return clients, nil
	}
	err := r.conn(ctx).Where("id IN ?", ids).Order("name asc").Find(&clients).Error
	return clients, apperror.FromDB("client", err)
}

func (r *contactRepository) ClearClient(ctx context.Context, clientID uuid.UUID) error {
	return apperror.FromDB("contact", clearReference(ctx, r.db, "contacts", "client_id", clientID))
}

func (r *contactRepository) ListByClients(ctx context.Context, clientIDs []uuid.UUID) ([]model.Contact, error) {
	var contacts []model.Contact
	if len(clientIDs) == 0 {
		return contacts, nil
	}
	err := r.conn(ctx).Where("client_id IN ?", clientIDs).Order("last_name asc, first_name asc").Find(&contacts).Error
	return contacts, apperror.FromDB("contact", err)
}

func (r *projectRepository) ReplaceTeam(ctx context.Context, project *model.Project, members []model.User) error {
	err := r.conn(ctx).Model(project).Omit("Team.*").Association("Team").Replace(members)
	return apperror.FromDB("project", err)
}

func (r *projectRepository) ClearClient(ctx context.Context, clientID uuid.UUID) error {
	return apperror.FromDB("project", clearReference(ctx, r.db, "projects", "client_id", clientID))
}

func (r *projectRepository) ClearDefaultTask(ctx context.Context, taskID uuid.UUID) error {
	return apperror.FromDB("project", clearReference(ctx, r.db, "projects", "default_task_id", taskID))
}

func (r *projectRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	if len(ids) == 0 {
		return projects, nil
	}
	err := r.conn(ctx).
		Preload("DefaultTask").
		Preload("Team", func(db *gorm.DB) *gorm.DB { return db.Order("username asc") }).
		Preload("Team.Profile").
		Where("id IN ?", ids).
		Find(&projects).Error
	return projects, apperror.FromDB("project", err)
}

func (r *projectRepository) DeleteTeamLinks(ctx context.Context, projectID uuid.UUID) error {
	return apperror.FromDB("project", deleteLinks(ctx, r.db, "project_team", "project_id", projectID))
}

func (r *taskRepository) EnsureDefault(ctx context.Context, build func() *model.Task) (*model.Task, error) {
	task, err := r.getDefault(ctx)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.FromDB("task", err)
	}

	// The unique system key makes a concurrent creator lose quietly.
	candidate := build()
	err = r.conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "system_key"}}, DoNothing: true}).
		Create(candidate).Error
	if err != nil {
		return nil, apperror.FromDB("task", err)
	}
	task, err = r.getDefault(ctx)
	if err != nil {
		return nil, apperror.FromDB("task", err)
	}
	return task, nil
}

func (r *taskRepository) getDefault(ctx context.Context) (*model.Task, error) {
	var task model.Task
	if err := r.conn(ctx).First(&task, "system_key = ?", model.DefaultTaskKey).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	if len(ids) == 0 {
		return tasks, nil
	}
	err := r.conn(ctx).Where("id IN ?", ids).Order("name asc").Find(&tasks).Error
	return tasks, apperror.FromDB("task", err)
}
