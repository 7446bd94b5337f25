package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

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

// Standalone job worker. The queue here is in-memory and process-local, so
// this binary only makes sense once the queue is backed by an external
// broker; until then the API binary embeds the same worker loop.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	sync := syncer.New(fetcher, extract.NewExtractor(model, log), normalize.New(cfg.DisplayCurrency, log), st, log,
		syncer.WithBatchSize(cfg.BatchSize),
		syncer.WithBatchInterval(cfg.BatchInterval))

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, 2, jobStore)

	log.Info().Msg("Starting worker service")

	handler := func(ctx context.Context, job jobs.Job) error {
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

	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	log.Info().Msg("Worker service exited")
}
