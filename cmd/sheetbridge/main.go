package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/sheetbridge/internal/adapter/driven/googleauth"
	"github.com/ericfisherdev/sheetbridge/internal/adapter/driven/sheets"
	sqliteadapter "github.com/ericfisherdev/sheetbridge/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/sheetbridge/internal/adapter/driving/http"
	"github.com/ericfisherdev/sheetbridge/internal/application"
	"github.com/ericfisherdev/sheetbridge/internal/config"
	"github.com/ericfisherdev/sheetbridge/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"spreadsheet_id", cfg.SpreadsheetID,
		"service_account", cfg.ServiceAccountEmail,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the submission journal. An empty DB path disables it.
	var journal driven.SubmissionJournal
	if cfg.DBPath != "" {
		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		slog.Info("submission journal ready", "path", cfg.DBPath)

		journal = sqliteadapter.NewJournalRepo(db)
	} else {
		slog.Info("submission journal disabled")
	}

	// 4. Build the credential chain: key signer, then token broker.
	signer, err := googleauth.NewSigner(cfg.PrivateKey)
	if err != nil {
		return err
	}
	broker := googleauth.NewBroker(signer, cfg.ServiceAccountEmail)

	// 5. Create the spreadsheet client.
	sheetClient := sheets.NewClient(broker, cfg.SpreadsheetID, cfg.HandleTTL)

	// 6. Wire application services.
	upsertSvc := application.NewUpsertService(sheetClient, journal, cfg.CountSheet, slog.Default())
	refSvc := application.NewReferenceService(sheetClient, cfg.CatalogSheet, cfg.RosterSheet)
	healthSvc := application.NewHealthService(sheetClient)

	// 7. Create HTTP handler with middleware.
	apiHandler := httphandler.NewHandler(sheetClient, upsertSvc, refSvc, healthSvc, journal, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("sheetbridge started",
		"listen_addr", cfg.ListenAddr,
		"count_sheet", cfg.CountSheet,
	)

	// 8. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
