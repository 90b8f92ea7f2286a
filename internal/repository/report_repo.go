package repository

import (
	"context"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportSnapshot is the set of records a report refers to.
type ReportSnapshot struct {
	Invoices []model.Invoice
	Clients  []model.Client
	Projects []model.Project
	Tasks    []model.Task
	Contacts []model.Contact
}

type ReportRepository interface {
	Store[model.Report]
	GetWithInvoices(ctx context.Context, id uuid.UUID) (*model.Report, error)
	// SaveBuild writes totals and team without touching name or date.
	SaveBuild(ctx context.Context, report *model.Report) error
	ReplaceInvoices(ctx context.Context, report *model.Report, invoices []model.Invoice) error
	ReplaceSnapshot(ctx context.Context, report *model.Report, snap ReportSnapshot) error
	DeleteLinks(ctx context.Context, reportID uuid.UUID) error
	DeleteLinksTo(ctx context.Context, kind string, id uuid.UUID) error
}

type reportRepository struct {
	store[model.Report]
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{newStore[model.Report](db, "report", []string{"name", "date", "user_id", "amount"},
		"Invoices", "Clients", "Projects", "Tasks", "Contacts")}
}

var reportJoinTables = map[string][2]string{
	model.KindInvoice: {"report_invoices", "invoice_id"},
	model.KindClient:  {"report_clients", "client_id"},
	model.KindProject: {"report_projects", "project_id"},
	model.KindTask:    {"report_tasks", "task_id"},
	model.KindContact: {"report_contacts", "contact_id"},
}

func (r *reportRepository) GetWithInvoices(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	err := r.conn(ctx).
		Preload("Invoices", func(db *gorm.DB) *gorm.DB { return db.Order("invoice_number asc") }).
		First(&report, "id = ?", id).Error
	if err != nil {
		return nil, apperror.FromDB("report", err)
	}
	return &report, nil
}

func (r *reportRepository) SaveBuild(ctx context.Context, report *model.Report) error {
	err := r.conn(ctx).Model(&model.Report{}).Where("id = ?", report.ID).Updates(map[string]interface{}{
		"hours":  report.Hours,
		"amount": report.Amount,
		"cost":   report.Cost,
		"net":    report.Net,
		"team":   report.Team,
	}).Error
	return apperror.FromDB("report", err)
}

func (r *reportRepository) ReplaceInvoices(ctx context.Context, report *model.Report, invoices []model.Invoice) error {
	return apperror.FromDB("report", replaceLinks(r.conn(ctx), report, "Invoices", invoices, len(invoices)))
}

func (r *reportRepository) ReplaceSnapshot(ctx context.Context, report *model.Report, snap ReportSnapshot) error {
	db := r.conn(ctx)
	replace := []struct {
		name   string
		values interface{}
		n      int
	}{
		{"Invoices", snap.Invoices, len(snap.Invoices)},
		{"Clients", snap.Clients, len(snap.Clients)},
		{"Projects", snap.Projects, len(snap.Projects)},
		{"Tasks", snap.Tasks, len(snap.Tasks)},
		{"Contacts", snap.Contacts, len(snap.Contacts)},
	}
	for _, rep := range replace {
		if err := replaceLinks(db, report, rep.name, rep.values, rep.n); err != nil {
			return apperror.FromDB("report", err)
		}
	}
	return nil
}

// replaceLinks rewrites one many2many association without upserting the
// referenced rows.
func replaceLinks(db *gorm.DB, report *model.Report, name string, values interface{}, n int) error {
	assoc := db.Model(report).Omit(name + ".*").Association(name)
	if n == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func (r *reportRepository) DeleteLinks(ctx context.Context, reportID uuid.UUID) error {
	for _, join := range reportJoinTables {
		if err := deleteLinks(ctx, r.db, join[0], "report_id", reportID); err != nil {
			return apperror.FromDB("report", err)
		}
	}
	return nil
}

// DeleteLinksTo drops every report's reference to the given record.
func (r *reportRepository) DeleteLinksTo(ctx context.Context, kind string, id uuid.UUID) error {
	join, ok := reportJoinTables[kind]
	if !ok {
		return nil
	}
	return apperror.FromDB("report", deleteLinks(ctx, r.db, join[0], join[1], id))
}
