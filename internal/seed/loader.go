package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pgexpense/internal/core"
	applog "pgexpense/internal/log"
	"pgexpense/internal/query"
)

const (
	DefaultTargetRows    = 1_000_000
	DefaultBatchSize     = 1000
	DefaultChunkSize     = 100
	DefaultProgressEvery = 1000

	// LargeTargetRows is the target above which a long run is announced.
	LargeTargetRows = 10_000_000
)

// Store is the storage surface the loader writes through.
type Store interface {
	CountExpenses(ctx context.Context) (int64, error)
	InsertBatch(ctx context.Context, rows []core.NewExpense, chunkSize int) error
}

// Options configure a load run.
type Options struct {
	TargetRows    int64
	BatchSize     int
	ChunkSize     int
	ProgressEvery int
}

// DefaultOptions returns the options of an unconfigured run.
func DefaultOptions() Options {
	return Options{
		TargetRows:    DefaultTargetRows,
		BatchSize:     DefaultBatchSize,
		ChunkSize:     DefaultChunkSize,
		ProgressEvery: DefaultProgressEvery,
	}
}

// Validate checks the options against the bound-parameter limit of d.
func (o Options) Validate(d query.Dialect) error {
	var errs []error
	if o.TargetRows < 1 {
		errs = append(errs, fmt.Errorf("target rows must be positive, got %d", o.TargetRows))
	}
	if o.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", o.BatchSize))
	}
	if o.ChunkSize < 1 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", o.ChunkSize))
	} else if params := o.ChunkSize * query.ParamsPerRow; params > d.MaxParams() {
		errs = append(errs, fmt.Errorf("chunk size %d binds %d parameters, %s allows %d",
			o.ChunkSize, params, d.Name(), d.MaxParams()))
	}
	if o.ProgressEvery < 1 {
		errs = append(errs, fmt.Errorf("progress interval must be positive, got %d", o.ProgressEvery))
	}
	return errors.Join(errs...)
}

// BatchFailure reports the batch whose transaction was rolled back.
type BatchFailure struct {
	Batch int // 1-based
	Rows  int
	Err   error
}

func (f *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (%d rows) failed: %v", f.Batch, f.Rows, f.Err)
}

func (f *BatchFailure) Unwrap() error {
	return f.Err
}

// Progress is a snapshot after a committed batch.
type Progress struct {
	Completed     int
	Total         int
	Rows          int64
	Elapsed       time.Duration
	RowsPerMinute float64
	ETA           time.Duration
}

// Percent is the share of batches completed.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 100
	}
	return float64(p.Completed) / float64(p.Total) * 100
}

// Result summarises a run.
type Result struct {
	Before   int64
	After    int64
	Inserted int64
	Batches  int
	Elapsed  time.Duration
	Skipped  bool
}

// RowsPerSecond is the average insertion rate of the run.
func (r Result) RowsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Inserted) / r.Elapsed.Seconds()
}

// Loader tops up the expenses table to a target row count.
type Loader struct {
	store   Store
	gen     *Generator
	dialect query.Dialect
	opts    Options
	logger  *applog.Logger
	now     func() time.Time

	// OnBatch, when set, is called after every committed batch.
	OnBatch func(Progress)
}

func NewLoader(store Store, gen *Generator, dialect query.Dialect, opts Options, logger *applog.Logger) *Loader {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Loader{
		store:   store,
		gen:     gen,
		dialect: dialect,
		opts:    opts,
		logger:  logger.WithComponent(applog.ComponentSeed),
		now:     time.Now,
	}
}

// Run inserts target minus current rows in batches, each in its own
// transaction. It is not safe to run concurrently against the same table.
func (l *Loader) Run(ctx context.Context) (Result, error) {
	if err := l.opts.Validate(l.dialect); err != nil {
		return Result{}, fmt.Errorf("invalid seed options: %w", err)
	}

	target := l.opts.TargetRows
	batchSize := int64(l.opts.BatchSize)
	totalBatches := int((target + batchSize - 1) / batchSize)

	l.logger.InfoContext(ctx, "Starting database seeding",
		"target_rows", target,
		applog.FieldBatches, totalBatches,
		"batch_size", l.opts.BatchSize,
		"chunk_size", l.opts.ChunkSize)
	if target > LargeTargetRows {
		l.logger.WarnContext(ctx, "Seeding a very large number of rows may take a long time and consume significant disk space",
			"target_rows", target)
	}

	current, err := l.store.CountExpenses(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count existing expenses: %w", err)
	}
	l.logger.InfoContext(ctx, "Current expense count", applog.FieldRows, current)

	if current >= target {
		l.logger.InfoContext(ctx, "Database already has sufficient data, skipping seed",
			applog.FieldRows, current, "target_rows", target)
		return Result{Before: current, After: current, Skipped: true}, nil
	}

	toInsert := target - current
	batches := int((toInsert + batchSize - 1) / batchSize)
	l.logger.InfoContext(ctx, "Inserting additional rows",
		applog.FieldRows, toInsert, applog.FieldBatches, batches)

	start := l.now()
	var inserted int64
	for batch := 1; batch <= batches; batch++ {
		if err := ctx.Err(); err != nil {
			return l.partial(current, inserted, batch-1, start), fmt.Errorf("seeding interrupted after %d batches: %w", batch-1, err)
		}

		n := int(min(batchSize, toInsert-inserted))
		rows := l.gen.Batch(n)
		if err := l.store.InsertBatch(ctx, rows, l.opts.ChunkSize); err != nil {
			failure := &BatchFailure{Batch: batch, Rows: n, Err: err}
			l.logger.ErrorContext(ctx, "Batch rolled back, aborting seed",
				applog.FieldBatch, batch, applog.FieldRows, n, applog.FieldError, err)
			return l.partial(current, inserted, batch-1, start), failure
		}
		inserted += int64(n)

		p := l.progress(batch, batches, inserted, start)
		if batch%l.opts.ProgressEvery == 0 || batch == batches {
			l.logger.InfoContext(ctx, "Seed progress",
				"completed", p.Completed,
				applog.FieldBatches, p.Total,
				"percent", fmt.Sprintf("%.3f", p.Percent()),
				"elapsed", p.Elapsed.Round(100*time.Millisecond).String(),
				"rows_per_min", int64(p.RowsPerMinute),
				"eta", p.ETA.Round(time.Minute).String())
		}
		if l.OnBatch != nil {
			l.OnBatch(p)
		}
	}

	elapsed := l.now().Sub(start)
	final, err := l.store.CountExpenses(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("count seeded expenses: %w", err)
	}

	res := Result{Before: current, After: final, Inserted: inserted, Batches: batches, Elapsed: elapsed}
	l.logger.InfoContext(ctx, "Seeding completed",
		"total_rows", final,
		"time_taken", elapsed.Round(100*time.Millisecond).String(),
		"minutes", fmt.Sprintf("%.1f", elapsed.Minutes()),
		"rows_per_sec", int64(res.RowsPerSecond()))
	return res, nil
}

func (l *Loader) progress(completed, total int, rows int64, start time.Time) Progress {
	elapsed := l.now().Sub(start)
	p := Progress{Completed: completed, Total: total, Rows: rows, Elapsed: elapsed}
	if elapsed > 0 {
		p.RowsPerMinute = float64(rows) / elapsed.Minutes()
	}
	if completed < total {
		perBatch := elapsed / time.Duration(completed)
		p.ETA = perBatch * time.Duration(total-completed)
	}
	return p
}

func (l *Loader) partial(before, inserted int64, batches int, start time.Time) Result {
	return Result{
		Before:   before,
		After:    before + inserted,
		Inserted: inserted,
		Batches:  batches,
		Elapsed:  l.now().Sub(start),
	}
}
