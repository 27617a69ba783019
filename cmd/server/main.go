package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"itinerary-service/internal/infrastructure/config"
	"itinerary-service/internal/infrastructure/oauth"
	"itinerary-service/internal/infrastructure/persistence"
	"itinerary-service/internal/interface/extractor"
	"itinerary-service/internal/interface/gmail"
	mongoRepo "itinerary-service/internal/interface/repository"
	"itinerary-service/internal/usecase"
	"itinerary-service/pkg/logger"
	"itinerary-service/pkg/metrics"
	"itinerary-service/pkg/utils"

	"itinerary-service/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	log := logger.NewLogger()
	log.Info("Starting Itinerary Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("Connecting to MongoDB")
	mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}
	db := persistence.GetDatabase(mongoClient, cfg.MongoDB)

	// Airport reference data is optional; without it legs simply keep the
	// city names they arrived with.
	var airportRepository repository.AirportRepository
	if cfg.PostgresURI != "" {
		gormDB, err := gorm.Open(postgres.Open(cfg.PostgresURI), &gorm.Config{})
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		airportRepository = mongoRepo.NewGormAirportRepository(gormDB)
	}

	tripRepository := mongoRepo.NewMongoTripRepository(db)
	attachmentRepository := mongoRepo.NewMongoAttachmentRepository(db)
	emailRepository := mongoRepo.NewMongoEmailRepository(db)

	engineMetrics := metrics.NewMetrics("itinerary")

	normalizer := usecase.NewLegNormalizer(cfg.HomeAirport)
	consolidator := usecase.NewConsolidator(normalizer, log)
	tripService := usecase.NewTripService(tripRepository, attachmentRepository, airportRepository, consolidator, engineMetrics, log)
	sweepScheduler := usecase.NewSweepScheduler(tripService, log)

	var legExtractor repository.LegExtractor
	if cfg.ExtractorURL != "" {
		legExtractor = extractor.NewHTTPExtractor(cfg.ExtractorURL, cfg.ExtractorToken, log)
	} else {
		log.Info("No extraction service configured, using built-in text parser")
		legExtractor = utils.NewItineraryParser(log)
	}
	importService := usecase.NewImportService(emailRepository, legExtractor, tripService, sweepScheduler, engineMetrics, log)

	go sweepScheduler.Run(ctx)

	if cfg.GmailClientID != "" {
		gmailOAuth := oauth.NewGmailOAuth(
			cfg.GmailClientID,
			cfg.GmailClientSecret,
			cfg.GmailRefreshToken,
			log,
		)
		tokenSource := gmailOAuth.GetTokenSource(ctx)

		gmailService, err := gmail.NewGmailService(ctx, tokenSource, emailRepository, importService, log, cfg.GmailPollInterval)
		if err != nil {
			log.Fatal("Failed to create Gmail service", "error", err)
		}
		go gmailService.StartPolling(ctx)
	} else {
		log.Warn("Gmail import disabled, GMAIL_CLIENT_ID not set")
	}

	// Retry loop for emails whose import was interrupted.
	go func() {
		retryTicker := time.NewTicker(30 * time.Second)
		defer retryTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Email retry loop stopped")
				return
			case <-retryTicker.C:
				if err := importService.ProcessPendingEmails(ctx); err != nil {
					log.Error("Error processing pending emails", "error", err)
				}
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel()

	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Itinerary Service stopped")
}
