package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lease-service/internal/external"
	"lease-service/internal/handler"
	mid "lease-service/internal/middleware"
	"lease-service/internal/workflow"
	"lease-service/pkg/config"
	"lease-service/pkg/database"
	"lease-service/pkg/jwtutil"
	"lease-service/pkg/logger"
	"lease-service/prometheus"
)

func main() {
	// Load .env file; missing file is fine, environment variables win.
	_ = godotenv.Load()

	appConfig, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger.InitLogger(appConfig)
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting lease-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	jwtutil.Initialize(&appConfig.JWT)

	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Record store ready",
		zap.String("driver", appConfig.Database.Driver))

	store, err := external.NewLocalDocumentStore(appConfig.Workflow.DocumentDir, log)
	if err != nil {
		log.Fatal("Failed to initialize document store", zap.Error(err))
	}
	var verifier external.DocumentVerifier
	if appConfig.Workflow.VerifierURL != "" {
		verifier = external.NewHTTPVerifier(appConfig.Workflow.VerifierURL, appConfig.Workflow.CollaboratorTimeout, log)
		log.Info("Document verification enabled", zap.String("url", appConfig.Workflow.VerifierURL))
	}
	var notifier external.Notifier
	if appConfig.Workflow.NotifierURL != "" {
		notifier = external.NewHTTPNotifier(appConfig.Workflow.NotifierURL, appConfig.Workflow.CollaboratorTimeout, log)
		log.Info("Notifications enabled", zap.String("url", appConfig.Workflow.NotifierURL))
	}

	workflow.Init(workflow.NewEngine(database.GetDB(), store, verifier, notifier, appConfig.Workflow.CollaboratorTimeout, log))

	// Initialize Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)

	// Metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Property API routes
	propertyAPI := e.Group("/api/properties", mid.AuthMiddleware)
	propertyAPI.GET("", handler.ListProperties)
	propertyAPI.GET("/:id", handler.GetProperty)
	propertyAPI.POST("", handler.CreateProperty)
	propertyAPI.PATCH("/:id/visibility", handler.UpdatePropertyVisibility)

	// Booking API routes
	bookingAPI := e.Group("/api/bookings", mid.AuthMiddleware)
	bookingAPI.GET("", handler.ListBookings)
	bookingAPI.GET("/:id", handler.GetBooking)
	bookingAPI.POST("", handler.CreateBooking)
	bookingAPI.POST("/:id/review", handler.ReviewBooking)
	bookingAPI.POST("/:id/decline", handler.DeclineBooking)

	// Invoice API routes
	invoiceAPI := e.Group("/api/invoices", mid.AuthMiddleware)
	invoiceAPI.GET("", handler.ListInvoices)
	invoiceAPI.GET("/:id", handler.GetInvoice)
	invoiceAPI.PATCH("/:id/status", handler.UpdateInvoiceStatus)

	// Contract API routes
	contractAPI := e.Group("/api/contracts", mid.AuthMiddleware)
	contractAPI.GET("", handler.ListContracts)
	contractAPI.GET("/:id", handler.GetContract)
	contractAPI.PATCH("/:id", handler.PatchContract)
	contractAPI.POST("/:id/revise", handler.ReviseContract)

	// Rental case API routes
	caseAPI := e.Group("/api/cases", mid.AuthMiddleware)
	caseAPI.GET("", handler.ListCases)
	caseAPI.GET("/:id", handler.GetCase)
	caseAPI.POST("/:id/documents", handler.SubmitCaseDocument)
	caseAPI.POST("/:id/handover", handler.RecordCaseHandover)
	caseAPI.POST("/:id/events", handler.ApplyCaseEvent)

	// Start server
	if err := e.Start(":" + appConfig.Server.Port); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
}
