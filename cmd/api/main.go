package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IgorGrieder/atalho/internal/config"
	"github.com/IgorGrieder/atalho/internal/infrastructure/db"
	"github.com/IgorGrieder/atalho/internal/infrastructure/logger"
	"github.com/IgorGrieder/atalho/internal/infrastructure/telemetry"
	kafkaMessaging "github.com/IgorGrieder/atalho/internal/messaging/kafka"
	"github.com/IgorGrieder/atalho/internal/processing/links"
	mongoStorage "github.com/IgorGrieder/atalho/internal/storage/mongo"
	httpTransport "github.com/IgorGrieder/atalho/internal/transport/http"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	mongoConn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	linkRepo, err := mongoStorage.NewLinksRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize links repository", zap.Error(err))
	}
	clickRepo, err := mongoStorage.NewClicksRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize clicks repository", zap.Error(err))
	}

	var clickWriter links.ClickWriter = clickRepo
	if cfg.Kafka.Sink == "kafka" {
		publisher := kafkaMessaging.NewClickPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = publisher.Close() }()
		clickWriter = publisher
		logger.Info("Click sink selected",
			zap.String("sink", "kafka"),
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	} else {
		logger.Info("Click sink selected", zap.String("sink", "store"))
	}

	recorder := links.NewRecorder(clickWriter, links.RecorderOptions{
		QueueSize:    cfg.Recorder.QueueSize,
		Workers:      cfg.Recorder.Workers,
		WriteTimeout: cfg.Recorder.WriteTimeout,
	})

	linkSvc := links.NewService(linkRepo, clickRepo, links.NewCryptoSlugger(), links.NewUAClassifier(), cfg.Shortener.SlugLength)

	router := httpTransport.NewRouter(cfg, linkSvc, recorder)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}

		// Drain queued clicks before the process exits; anything left past
		// the deadline is lost.
		if err := recorder.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Click recorder drain aborted", zap.Error(err))
		}

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
