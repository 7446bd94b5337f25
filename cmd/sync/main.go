package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dvloznov/mailspend/internal/config"
	"github.com/dvloznov/mailspend/internal/extract"
	"github.com/dvloznov/mailspend/internal/logger"
	"github.com/dvloznov/mailspend/internal/mailbox"
	"github.com/dvloznov/mailspend/internal/normalize"
	"github.com/dvloznov/mailspend/internal/store"
	"github.com/dvloznov/mailspend/internal/syncer"
)

func main() {
	owner := flag.String("owner", "", "Owner ID (mailbox owner's email) to sync")
	limit := flag.Int("max-messages", 0, "Max candidate messages to process (default from config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(cfg.LogLevel)

	if *owner == "" {
		log.Fatal().Msg("Error: --owner is required")
	}
	if *limit <= 0 {
		*limit = cfg.MaxMessages
	}

	// One sync should never take this long; bail out if it does.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	ctx = logger.WithContext(ctx, log)

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

	summary, err := sync.Run(ctx, *owner, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync %s completed: %d fetched, %d found, %d saved, %d duplicates, %d failed (%ds)\n",
		summary.RunID,
		summary.MessagesFetched,
		summary.TransactionsFound,
		summary.TransactionsSaved,
		summary.DuplicatesSkipped,
		len(summary.Failed),
		summary.ProcessingTimeSeconds)
}
