package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hackgoldship/invoice-agent/internal/config"
	"github.com/hackgoldship/invoice-agent/internal/record"
	"go.uber.org/zap"
)

// Notifier delivers advisory notifications raised by webhook handlers
type Notifier interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// DashboardStore is the read side of the invoice record store
type DashboardStore interface {
	Stats(ctx context.Context) (*record.DashboardStats, error)
	ListOverdueRecurring(ctx context.Context) ([]*record.OverdueInvoice, error)
}

// Options collects the server's collaborators
type Options struct {
	Assistant   Assistant
	Payments    PaymentMarker
	Records     DashboardStore
	Bus         Notifier
	WhatsApp    *WhatsAppClient
	VerifyToken string
	DedupTTL    time.Duration
}

// Server is the HTTP surface of the invoice agent
type Server struct {
	cfg         config.ServerConfig
	router      *gin.Engine
	httpServer  *http.Server
	assistant   Assistant
	payments    PaymentMarker
	records     DashboardStore
	bus         Notifier
	whatsapp    *WhatsAppClient
	verifyToken string
	dedup       *Deduper
	logger      *zap.Logger
}

// NewServer creates the HTTP server and registers all routes
func NewServer(cfg config.ServerConfig, opts Options, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	dedupTTL := opts.DedupTTL
	if dedupTTL <= 0 {
		dedupTTL = 10 * time.Minute
	}

	s := &Server{
		cfg:         cfg,
		router:      gin.New(),
		assistant:   opts.Assistant,
		payments:    opts.Payments,
		records:     opts.Records,
		bus:         opts.Bus,
		whatsapp:    opts.WhatsApp,
		verifyToken: opts.VerifyToken,
		dedup:       NewDeduper(dedupTTL),
		logger:      logger,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	s.router.GET("/ws/admin", s.handleChat("admin"))
	s.router.GET("/ws/user", s.handleChat("user"))

	api := s.router.Group("/api")
	{
		webhook := api.Group("/webhook")
		{
			webhook.POST("/payment/success", s.handlePaymentSuccess)
			webhook.POST("/payment/fail", s.handlePaymentFail)
			webhook.GET("/whatsapp", s.handleWhatsAppVerify)
			webhook.POST("/whatsapp", s.handleWhatsAppMessage)
		}

		api.GET("/dashboard/invoices", s.handleDashboard)
		api.GET("/invoices/overdue-recurring", s.handleOverdueRecurring)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	stats, err := s.records.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to load dashboard stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleOverdueRecurring(c *gin.Context) {
	overdue, err := s.records.ListOverdueRecurring(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to list overdue invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list overdue invoices"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"overdue_invoices": overdue,
		"count":            len(overdue),
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving and blocks until the listener stops
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("HTTP server starting", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
