package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/docuconta/books_backend/rpasync"
	"github.com/docuconta/books_backend/utils"
	"github.com/docuconta/books_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

type calculateMetricsRequest struct {
	AccountingSubjectId string `json:"accounting_subject_id" binding:"required"`
	PeriodType          string `json:"period_type" binding:"required"`
	PeriodDate          string `json:"period_date" binding:"required"`
}

type submitDataEntryRequest struct {
	DocumentId           int    `json:"document_id" binding:"required"`
	AccountingSubjectEin string `json:"accounting_subject_ein" binding:"required"`
}

func calculateMetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req calculateMetricsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		periodType, err := models.ParsePeriodType(req.PeriodType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		anchor, err := time.ParseInLocation("2006-01-02", req.PeriodDate, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period_date must be YYYY-MM-DD"})
			return
		}

		periodStart, periodEnd := workflow.PeriodBounds(periodType, anchor)
		metrics, err := workflow.CalculateFinancialMetrics(c.Request.Context(), req.AccountingSubjectId, periodType, periodStart, periodEnd)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "calculateMetricsHandler", "calculating metrics", req, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metric calculation failed"})
			return
		}

		breakdown, err := models.GetAccountCategoryMetrics(c.Request.Context(), req.AccountingSubjectId, periodType, periodStart)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "calculateMetricsHandler", "loading category breakdown", req, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metric calculation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"metrics": metrics, "categories": breakdown})
	}
}

func dashboardMetricsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectId := c.Param("subjectId")
		metrics, err := workflow.GetDashboardMetrics(c.Request.Context(), subjectId)
		if err != nil {
			config.LogError(config.GetLogger(), "server.go", "dashboardMetricsHandler", "loading dashboard metrics", subjectId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "dashboard metrics unavailable"})
			return
		}
		c.JSON(http.StatusOK, metrics)
	}
}

func submitDataEntryHandler(orchestrator *rpasync.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitDataEntryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())

		action, err := orchestrator.SubmitDataEntry(c.Request.Context(), req.DocumentId, userId, req.AccountingSubjectEin)
		if err != nil {
			if utils.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			config.LogError(config.GetLogger(), "server.go", "submitDataEntryHandler", "submitting rpa job", req, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "automation submission failed"})
			return
		}
		c.JSON(http.StatusOK, action)
	}
}

func actionStatusHandler(orchestrator *rpasync.Orchestrator) gin.HandlerFunc {
	return func(c *gin.Context) {
		documentId, err := parsePositiveInt(c.Param("documentId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "documentId must be a positive integer"})
			return
		}
		action, err := orchestrator.CheckActionStatus(c.Request.Context(), documentId)
		if err != nil {
			if utils.IsNotFound(err) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			config.LogError(config.GetLogger(), "server.go", "actionStatusHandler", "checking rpa action status", documentId, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status check failed"})
			return
		}
		c.JSON(http.StatusOK, action)
	}
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errors.New("not a number")
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, errors.New("must be positive")
	}
	return n, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Shutdown coordination: SIGTERM triggers a graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP; until DB is ready, app endpoints return 503.
	r := gin.New()
	r.Use(gin.Recovery())

	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			// Safer default: deny all if not configured in production.
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	vendor, vendorErr := rpasync.NewUiPathClient()
	var orchestrator *rpasync.Orchestrator
	if vendorErr != nil {
		logger.Warn("rpa vendor client not configured: " + vendorErr.Error())
	} else {
		orchestrator = rpasync.NewOrchestrator(vendor, rpasync.NewDocumentStore(), rpasync.NewActionStore(), logger)
	}

	api := r.Group("/api")
	{
		api.POST("/metrics/calculate", calculateMetricsHandler())
		api.GET("/metrics/dashboard/:subjectId", dashboardMetricsHandler())
		if orchestrator != nil {
			api.POST("/rpa/data-entry", submitDataEntryHandler(orchestrator))
			api.GET("/rpa/status/:documentId", actionStatusHandler(orchestrator))
		}
	}

	srv := &http.Server{Addr: ":" + port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	logger.WithFields(logrus.Fields{"port": port}).Info("http server listening")

	// Dependencies connect after listen so startup probes pass quickly.
	config.ConnectDatabaseWithRetry()
	models.MigrateTable()
	config.ConnectRedis()

	if err := RunLedgerEventWorkflow(sigCtx); err != nil {
		logger.Warn("ledger event workflow not started: " + err.Error())
	}

	if orchestrator != nil {
		worker := rpasync.NewReconciliationWorker(vendor, rpasync.NewActionStore(), logger)
		go worker.Run(sigCtx)
	}

	<-sigCtx.Done()
	logger.Info("shutdown signal received; draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http server shutdown: " + err.Error())
	}
}
