package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"pgexpense/internal/amqp"
	"pgexpense/internal/backend"
	"pgexpense/internal/cli"
	"pgexpense/internal/config"
	applog "pgexpense/internal/log"
	"pgexpense/internal/seed"
)

type seedFlags struct {
	rows          int64
	batchSize     int
	chunkSize     int
	progressEvery int
	progressBar   bool
}

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(cfg, logger).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config, logger *applog.Logger) *cobra.Command {
	flags := seedFlags{
		rows:          cfg.SeedRows,
		batchSize:     cfg.SeedBatchSize,
		chunkSize:     cfg.SeedChunkSize,
		progressEvery: seed.DefaultProgressEvery,
	}

	cmd := &cobra.Command{
		Use:   "pgexpense-seed",
		Short: "Fill the expenses table with synthetic records",
		Long: `Tops the expenses table up to a target row count with random expenses
dated within the last two years. Each batch is inserted in its own
transaction; rerunning with the same target inserts nothing.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), cfg, logger, flags, cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.Int64Var(&flags.rows, "rows", flags.rows, "target number of rows in the expenses table (SEED_EXPENSE_ROWS)")
	f.IntVar(&flags.batchSize, "batch-size", flags.batchSize, "rows per transaction (SEED_BATCH_SIZE)")
	f.IntVar(&flags.chunkSize, "chunk-size", flags.chunkSize, "rows per multi-row INSERT statement (SEED_CHUNK_SIZE)")
	f.IntVar(&flags.progressEvery, "progress-every", flags.progressEvery, "log progress every N batches")
	f.BoolVar(&flags.progressBar, "progress-bar", false, "render a progress bar on stderr")

	return cmd
}

func runSeed(ctx context.Context, cfg *config.Config, logger *applog.Logger, flags seedFlags, out io.Writer) error {
	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendConfig)
	if err != nil {
		return fmt.Errorf("initialize backend: %w", err)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()

	opts := seed.Options{
		TargetRows:    flags.rows,
		BatchSize:     flags.batchSize,
		ChunkSize:     flags.chunkSize,
		ProgressEvery: flags.progressEvery,
	}
	repo := result.Repository
	loader := seed.NewLoader(repo, seed.NewGenerator(nil, nil), repo.Dialect(), opts, logger)

	var bar *progressbar.ProgressBar
	if flags.progressBar {
		loader.OnBatch = func(p seed.Progress) {
			if bar == nil {
				bar = newProgressBar(p.Total, out)
			}
			if err := bar.Set(p.Completed); err != nil {
				logger.Warn("Failed to update progress bar", applog.FieldError, err)
			}
		}
	}

	res, err := loader.Run(ctx)
	if bar != nil {
		_ = bar.Exit()
	}
	if err != nil {
		var failure *seed.BatchFailure
		if errors.As(err, &failure) {
			logger.Error("Seeding aborted",
				applog.FieldBatch, failure.Batch,
				applog.FieldRows, failure.Rows,
				"inserted", res.Inserted,
				applog.FieldError, failure.Err)
		}
		return err
	}

	if result.Publisher != nil {
		msg := &amqp.SeedCompletedMessage{
			RowsBefore: res.Before,
			RowsAfter:  res.After,
			Inserted:   res.Inserted,
			Batches:    res.Batches,
			DurationMs: res.Elapsed.Milliseconds(),
			Skipped:    res.Skipped,
		}
		if err := result.Publisher.PublishSeedCompleted(ctx, msg); err != nil {
			logger.Warn("Failed to publish seed completed message", applog.FieldError, err)
		}
	}

	fmt.Fprintf(out, "expenses: %d rows (inserted %d in %s)\n",
		res.After, res.Inserted, res.Elapsed.Round(100*time.Millisecond))
	return nil
}

func newProgressBar(total int, out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Seeding expenses...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(out)
		}),
	)
}
