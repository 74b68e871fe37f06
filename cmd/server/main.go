package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgoldship/invoice-agent/internal/config"
	"github.com/hackgoldship/invoice-agent/internal/crm"
	"github.com/hackgoldship/invoice-agent/internal/invoice"
	"github.com/hackgoldship/invoice-agent/internal/notify"
	"github.com/hackgoldship/invoice-agent/internal/pipeline"
	"github.com/hackgoldship/invoice-agent/internal/publish"
	"github.com/hackgoldship/invoice-agent/internal/record"
	"github.com/hackgoldship/invoice-agent/internal/render"
	"github.com/hackgoldship/invoice-agent/internal/storage"
	"github.com/hackgoldship/invoice-agent/internal/transport"
	"github.com/hackgoldship/invoice-agent/pkg/database"
	"github.com/hackgoldship/invoice-agent/pkg/utils"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
)

func main() {
	// Local development convenience; missing .env is not an error
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting invoice agent",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	records, err := record.NewStore(db, logger)
	if err != nil {
		logger.Fatal("Failed to initialize record store", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(storage.Config{
		Endpoint:       cfg.Storage.Endpoint,
		AccessKey:      cfg.Storage.AccessKey,
		SecretKey:      cfg.Storage.SecretKey,
		UseSSL:         cfg.Storage.UseSSL,
		InvoiceBucket:  cfg.Storage.InvoiceBucket,
		TemplateBucket: cfg.Storage.TemplateBucket,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}
	if err := store.EnsureBuckets(ctx); err != nil {
		logger.Fatal("Failed to ensure storage buckets", zap.Error(err))
	}

	bus, err := notify.NewSNSBus(ctx, cfg.Notify.Region, cfg.Notify.TopicARN, logger)
	if err != nil {
		logger.Fatal("Failed to initialize notification bus", zap.Error(err))
	}

	oracle := crm.NewLLMOracle(crm.Config{
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		Temperature: cfg.Oracle.Temperature,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Timeout:     cfg.Oracle.Timeout,
	}, logger)

	renderer := render.NewRenderer(store, cfg.Storage.TemplateKey, logger)
	converter := render.NewPDFConverter(cfg.Renderer.WkhtmltopdfPath)

	gateway := publish.NewGatewayClient(cfg.Gateway.Endpoint, cfg.Gateway.Timeout)
	publisher := publish.NewPublisher(gateway, store, logger)

	controller := pipeline.NewController(
		oracle,
		invoice.NewBuilder(),
		renderer,
		converter,
		publisher,
		bus,
		records,
		logger,
	)

	assistant := transport.NewChatAssistant(controller, logger)

	var whatsapp *transport.WhatsAppClient
	if cfg.WhatsApp.AccessToken != "" && cfg.WhatsApp.PhoneNumberID != "" {
		whatsapp = transport.NewWhatsAppClient(cfg.WhatsApp.AccessToken, cfg.WhatsApp.PhoneNumberID, logger)
	}

	server := transport.NewServer(cfg.Server, transport.Options{
		Assistant:   assistant,
		Payments:    controller,
		Records:     records,
		Bus:         bus,
		WhatsApp:    whatsapp,
		VerifyToken: cfg.WhatsApp.VerifyToken,
		DedupTTL:    cfg.WhatsApp.DedupTTL,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}

	logger.Info("Invoice agent stopped")
}
