// Package app wires repositories, services, hooks and handlers together. Both
// the API server and portalctl build from it so the hook order is the same.
package app

import (
	"portal/internal/billing"
	"portal/internal/config"
	"portal/internal/handler"
	"portal/internal/hooks"
	"portal/internal/logger"
	"portal/internal/middleware"
	"portal/internal/notify"
	"portal/internal/payment"
	"portal/internal/repository"
	"portal/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *zap.Logger
	Bus    *hooks.Bus

	Users      service.UserService
	Catalog    service.CatalogService
	Entries    service.TimeEntryService
	Invoices   service.InvoiceService
	Aggregator service.InvoiceAggregator
	Reports    service.ReportService
	Notes      service.NoteService
	Search     service.SearchService
	Audit      service.AuditService
	Payments   service.PaymentService

	Auth *middleware.Auth
}

// New builds the service graph on db and registers the hook handlers.
func New(cfg *config.Config, db *gorm.DB, log *zap.Logger) *App {
	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contactRepo := repository.NewContactRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	entryRepo := repository.NewTimeEntryRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	reportRepo := repository.NewReportRepository(db)
	noteRepo := repository.NewNoteRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	searchRepo := repository.NewSearchRepository(db)

	bus := hooks.NewBus()
	rates := billing.NewRateResolver(billing.Policy{IssuerRateFallback: cfg.Billing.IssuerRateFallback})

	a := &App{Config: cfg, DB: db, Logger: log, Bus: bus}

	a.Users = service.NewUserService(userRepo, taskRepo, bus, service.AuthOptions{
		JWTSecret: []byte(cfg.JWTSecret),
		Whitelist: cfg.IdentityWhitelist,
	})
	a.Entries = service.NewTimeEntryService(entryRepo, userRepo, projectRepo, taskRepo, invoiceRepo, txManager, bus, rates)
	a.Aggregator = service.NewInvoiceAggregator(invoiceRepo, entryRepo, txManager, rates, log.Named("aggregator"))
	a.Invoices = service.NewInvoiceService(invoiceRepo, entryRepo, reportRepo, a.Aggregator, txManager, bus)
	a.Reports = service.NewReportService(
		reportRepo, invoiceRepo, entryRepo, projectRepo, clientRepo, contactRepo, taskRepo,
		txManager, bus, service.ReportOptions{ExcludeArchived: cfg.Report.ExcludeArchived}, log.Named("report"),
	)
	a.Catalog = service.NewCatalogService(
		companyRepo, clientRepo, contactRepo, projectRepo, taskRepo,
		userRepo, invoiceRepo, entryRepo, reportRepo, a.Entries, txManager,
	)
	a.Notes = service.NewNoteService(noteRepo)
	a.Search = service.NewSearchService(searchRepo)
	a.Audit = service.NewAuditService(auditRepo)
	a.Payments = service.NewPaymentService(invoiceRepo, payment.NewStripeCheckout(payment.Config{
		Secret:     cfg.Payment.Secret,
		SuccessURL: cfg.Payment.SuccessURL,
		CancelURL:  cfg.Payment.CancelURL,
	}))

	mailer := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.DefaultFromAddress,
	}, log.Named("mail"))
	notifier := service.NewTimeEntryNotifier(userRepo, mailer, cfg.DefaultFromAddress, log.Named("notify"))

	// Invoice totals first so audit rows see the recomputed invoice.
	a.Aggregator.Register(bus)
	a.Audit.Register(bus)
	notifier.Register(bus)
	bus.OnAuthenticated(a.Users.EnsureProfile)

	a.Auth = middleware.NewAuth(a.Users, cfg.IsRelease())
	return a
}

// Router returns the gin engine with every API route registered.
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.Config.GinMode)

	router := gin.New()
	router.Use(logger.GinLogger(a.Logger), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// API Routing
	root := router.Group("")
	handler.NewUserHandler(a.Users, a.Auth).RegisterRoutes(root)
	handler.NewCatalogHandler(a.Catalog, a.Auth).RegisterRoutes(root)
	handler.NewTimeEntryHandler(a.Entries, a.Auth).RegisterRoutes(root)
	handler.NewInvoiceHandler(a.Invoices, a.Payments, a.Auth).RegisterRoutes(root)
	handler.NewReportHandler(a.Reports, a.Auth).RegisterRoutes(root)
	handler.NewNoteHandler(a.Notes, a.Auth).RegisterRoutes(root)
	handler.NewSearchHandler(a.Search, a.Auth).RegisterRoutes(root)
	handler.NewAuditHandler(a.Audit, a.Auth).RegisterRoutes(root)

	return router
}
