package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"pgexpense/internal/core"
	"pgexpense/internal/query"
)

// Repository reads and writes expense records through a DB pool.
type Repository struct {
	db    *DB
	order query.OrderPolicy
}

// NewRepository returns a repository listing records with the given
// tie-break policy. An unknown policy falls back to created_at.
func NewRepository(db *DB, order query.OrderPolicy) *Repository {
	if !order.IsValid() {
		order = query.OrderByCreatedAt
	}
	return &Repository{db: db, order: order}
}

// DB exposes the underlying pool for read-only collaborators.
func (r *Repository) DB() *DB {
	return r.db
}

func (r *Repository) Dialect() query.Dialect {
	return r.db.Dialect
}

// Ping reports whether the pool can reach the database.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateExpense inserts one record and returns it as stored.
func (r *Repository) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	q := query.InsertExpense(r.db.Dialect)
	row := r.db.QueryRowContext(ctx, q, e.Description, e.Amount, e.Category, e.Date)

	expense, err := scanExpense(row)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved",
		"id", expense.ID,
		"description", expense.Description,
		"amount", expense.Amount.String(),
		"date", expense.Date.String())

	return expense, nil
}

// ListExpenses returns the records matching f, most recent date first.
func (r *Repository) ListExpenses(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	q, args := query.ListExpenses(r.db.Dialect, query.FromFilter(f), r.order)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		slog.ErrorContext(ctx, "List expenses query failed", "query", q, "params", args, "error", err)
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	return expenses, nil
}

// CountExpenses returns the number of stored records.
func (r *Repository) CountExpenses(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// InsertBatch stores rows in one transaction using multi-row inserts of at
// most chunkSize rows each. Either every row is stored or none is.
func (r *Repository) InsertBatch(ctx context.Context, rows []core.NewExpense, chunkSize int) error {
	if len(rows) == 0 {
		return nil
	}
	if chunkSize < 1 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if limit := query.MaxRowsPerStatement(r.db.Dialect); chunkSize > limit {
		return fmt.Errorf("chunk size %d exceeds %s limit of %d rows", chunkSize, r.db.Dialect.Name(), limit)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(rows); start += chunkSize {
		end := min(start+chunkSize, len(rows))
		chunk := rows[start:end]

		q, err := query.InsertValues(r.db.Dialect, len(chunk))
		if err != nil {
			return err
		}
		args := make([]any, 0, len(chunk)*query.ParamsPerRow)
		for _, e := range chunk {
			args = append(args, e.Description, e.Amount, e.Category, e.Date)
		}

		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			slog.ErrorContext(ctx, "Bulk insert failed",
				"query", q,
				"params", args,
				"chunk_start", start,
				"chunk_rows", len(chunk),
				"error", err)
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var (
		e         core.Expense
		category  sql.NullString
		createdAt timestampScanner
	)
	if err := s.Scan(&e.ID, &e.Description, &e.Amount, &category, &e.Date, &createdAt); err != nil {
		return core.Expense{}, err
	}
	if category.Valid {
		c := category.String
		e.Category = &c
	}
	e.CreatedAt = createdAt.Time
	return e, nil
}

// timestampScanner reads TIMESTAMPTZ values (PostgreSQL) and the ISO-8601
// text SQLite stores for the created_at default.
type timestampScanner struct {
	Time time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999Z",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func (ts *timestampScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (ts *timestampScanner) parse(s string) error {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			ts.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognized format %q", s)
}
