package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"portal/internal/billing"
	"portal/internal/database"
	"portal/internal/hooks"
	"portal/internal/model"
	"portal/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Enabled() bool { return true }

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return m.err
}

type fixtureOptions struct {
	policy    billing.Policy
	report    ReportOptions
	whitelist []string
}

// fixture is the full service graph on a fresh SQLite file.
type fixture struct {
	t   *testing.T
	ctx context.Context
	db  *gorm.DB
	bus *hooks.Bus

	userRepo    repository.UserRepository
	taskRepo    repository.TaskRepository
	entryRepo   repository.TimeEntryRepository
	invoiceRepo repository.InvoiceRepository
	reportRepo  repository.ReportRepository

	users      UserService
	catalog    CatalogService
	entries    TimeEntryService
	invoices   InvoiceService
	aggregator InvoiceAggregator
	reports    ReportService
	notes      NoteService
	search     SearchService
	audit      AuditService
	mailer     *recordingMailer
}

func newFixture(t *testing.T, opts ...func(*fixtureOptions)) *fixture {
	t.Helper()
	var o fixtureOptions
	for _, fn := range opts {
		fn(&o)
	}

	db, err := database.NewConnection("sqlite://"+filepath.Join(t.TempDir(), "portal.db"), zap.NewNop())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &fixture{t: t, ctx: context.Background(), db: db, bus: hooks.NewBus(), mailer: &recordingMailer{}}
	txManager := repository.NewTransactionManager(db)
	f.userRepo = repository.NewUserRepository(db)
	f.taskRepo = repository.NewTaskRepository(db)
	f.entryRepo = repository.NewTimeEntryRepository(db)
	f.invoiceRepo = repository.NewInvoiceRepository(db)
	f.reportRepo = repository.NewReportRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contactRepo := repository.NewContactRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	rates := billing.NewRateResolver(o.policy)
	log := zap.NewNop()

	f.users = NewUserService(f.userRepo, f.taskRepo, f.bus, AuthOptions{JWTSecret: []byte("test-secret"), Whitelist: o.whitelist})
	f.entries = NewTimeEntryService(f.entryRepo, f.userRepo, projectRepo, f.taskRepo, f.invoiceRepo, txManager, f.bus, rates)
	f.aggregator = NewInvoiceAggregator(f.invoiceRepo, f.entryRepo, txManager, rates, log)
	f.invoices = NewInvoiceService(f.invoiceRepo, f.entryRepo, f.reportRepo, f.aggregator, txManager, f.bus)
	f.reports = NewReportService(f.reportRepo, f.invoiceRepo, f.entryRepo, projectRepo, clientRepo, contactRepo, f.taskRepo,
		txManager, f.bus, o.report, log)
	f.catalog = NewCatalogService(companyRepo, clientRepo, contactRepo, projectRepo, f.taskRepo,
		f.userRepo, f.invoiceRepo, f.entryRepo, f.reportRepo, f.entries, txManager)
	f.notes = NewNoteService(repository.NewNoteRepository(db))
	f.search = NewSearchService(repository.NewSearchRepository(db))
	f.audit = NewAuditService(repository.NewAuditRepository(db))

	f.aggregator.Register(f.bus)
	f.audit.Register(f.bus)
	NewTimeEntryNotifier(f.userRepo, f.mailer, "office@example.com", log).Register(f.bus)
	f.bus.OnAuthenticated(f.users.EnsureProfile)
	return f
}

func ptr[T any](v T) *T { return &v }

// user creates an active user with a profile. An empty costRate leaves the
// profile rate unset.
func (f *fixture) user(name string, superuser bool, costRate string) Principal {
	f.t.Helper()
	u := &model.User{Username: name, IsActive: true, IsSuperuser: superuser}
	require.NoError(f.t, f.userRepo.Create(f.ctx, u))
	profile := &model.Profile{UserID: u.ID, PageSize: 10}
	if costRate != "" {
		profile.CostRate = decimal.NewNullDecimal(decimal.RequireFromString(costRate))
	}
	require.NoError(f.t, f.userRepo.CreateProfileIfMissing(f.ctx, profile))
	p, err := f.users.PrincipalFor(f.ctx, u.ID)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) task(name, rate string) *model.Task {
	f.t.Helper()
	req := TaskRequest{Name: ptr(name)}
	if rate != "" {
		req.BillingRate = ptr(rate)
	}
	task, err := f.catalog.CreateTask(f.ctx, System, req)
	require.NoError(f.t, err)
	return task
}

func (f *fixture) project(name string, req ProjectRequest) *model.Project {
	f.t.Helper()
	req.Name = ptr(name)
	project, err := f.catalog.CreateProject(f.ctx, System, req)
	require.NoError(f.t, err)
	return project
}

func (f *fixture) invoice(p Principal, req CreateInvoiceRequest) *InvoiceResponse {
	f.t.Helper()
	invoice, err := f.invoices.Create(f.ctx, p, req)
	require.NoError(f.t, err)
	return invoice
}

func (f *fixture) entry(p Principal, req CreateTimeEntryRequest) *TimeEntryResponse {
	f.t.Helper()
	entry, err := f.entries.Create(f.ctx, p, req)
	require.NoError(f.t, err)
	return entry
}

func (f *fixture) reload(invoiceID string) *InvoiceResponse {
	f.t.Helper()
	invoice, err := f.invoices.Get(f.ctx, System, invoiceID)
	require.NoError(f.t, err)
	return invoice
}
