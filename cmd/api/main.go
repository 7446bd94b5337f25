package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dvloznov/mailspend/internal/api/handlers"
	"github.com/dvloznov/mailspend/internal/api/middleware"
	"github.com/dvloznov/mailspend/internal/config"
	"github.com/dvloznov/mailspend/internal/extract"
	"github.com/dvloznov/mailspend/internal/jobs"
	"github.com/dvloznov/mailspend/internal/jobs/inmemory"
	"github.com/dvloznov/mailspend/internal/logger"
	"github.com/dvloznov/mailspend/internal/mailbox"
	"github.com/dvloznov/mailspend/internal/normalize"
	"github.com/dvloznov/mailspend/internal/store"
	"github.com/dvloznov/mailspend/internal/syncer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx := context.Background()

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	gmailSvc, err := mailbox.NewService(ctx, cfg.GmailCredentialsPath, cfg.GmailTokenPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create mailbox service")
	}
	fetcher := mailbox.NewFetcher(gmailSvc, cfg.LookbackDays, cfg.BodyCharBudget, log)

	model, err := extract.NewGeminiClient(ctx, cfg.ModelName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create model client")
	}
	extractor := extract.NewExtractor(model, log)

	sync := syncer.New(fetcher, extractor, normalize.New(cfg.DisplayCurrency, log), st, log,
		syncer.WithBatchSize(cfg.BatchSize),
		syncer.WithBatchInterval(cfg.BatchInterval))

	// Job infrastructure for async syncs
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		syncJob, ok := job.(*jobs.SyncMailboxJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("owner_id", syncJob.OwnerID).
			Msg("Processing sync job")

		summary, err := sync.Run(ctx, syncJob.OwnerID, syncJob.MaxMessages)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", syncJob.JobID).
				Str("owner_id", syncJob.OwnerID).
				Msg("Sync job failed")
			return err
		}

		syncJob.Summary = &summary

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("run_id", summary.RunID).
			Int("saved", summary.TransactionsSaved).
			Msg("Sync job completed")

		return nil
	}

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	syncHandler := handlers.NewSyncHandler(sync, jobQueue, cfg.MaxMessages, log)
	transactionsHandler := handlers.NewTransactionsHandler(st, log)
	syncRunsHandler := handlers.NewSyncRunsHandler(st, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sync", syncHandler.RunSync)
		r.Post("/sync/jobs", syncHandler.EnqueueSync)
		r.Get("/sync-runs", syncRunsHandler.ListSyncRuns)
		r.Get("/transactions", transactionsHandler.ListTransactions)
		r.Get("/jobs", jobsHandler.ListJobs)
		r.Get("/jobs/{id}", jobsHandler.GetJob)
	})
	r.Get("/healthz", handlers.Health)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
		// Syncs run inline on POST /api/sync; the write timeout has to cover
		// a full run.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}
