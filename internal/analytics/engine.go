// Package analytics computes expense statistics with grouped SQL queries.
//
// Every view is rendered from the same filter predicate, so the total, the
// per-category, per-month and per-day breakdowns always describe the same
// set of records a listing with those filters would return.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/errgroup"

	"pgexpense/internal/core"
	applog "pgexpense/internal/log"
	"pgexpense/internal/query"
)

// Queryer is the read surface of a connection pool.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Engine runs the statistics views against a pool.
type Engine struct {
	db      Queryer
	dialect query.Dialect
	logger  *slog.Logger
}

func NewEngine(db Queryer, dialect query.Dialect) *Engine {
	return &Engine{db: db, dialect: dialect, logger: slog.Default().With(applog.FieldComponent, applog.ComponentAnalytics)}
}

// Stats computes the four views for f. The views are queried concurrently on
// separate pooled connections; the first failure cancels the others.
func (e *Engine) Stats(ctx context.Context, f core.Filter) (core.Stats, error) {
	where, args := query.FromFilter(f).Render(e.dialect)
	stats := core.EmptyStats()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := e.total(ctx, where, args)
		stats.Total = total
		return err
	})
	g.Go(func() error {
		rows, err := e.byCategory(ctx, where, args)
		stats.ByCategory = rows
		return err
	})
	g.Go(func() error {
		rows, err := e.byMonth(ctx, where, args)
		stats.ByMonth = rows
		return err
	})
	g.Go(func() error {
		rows, err := e.daily(ctx, where, args)
		stats.Daily = rows
		return err
	})

	if err := g.Wait(); err != nil {
		return core.Stats{}, err
	}
	return stats, nil
}

func (e *Engine) total(ctx context.Context, where string, args []any) (core.TotalStat, error) {
	q := "SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM expenses " + where

	var t core.TotalStat
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&t.Count, &t.Amount); err != nil {
		e.logFailure(ctx, "total", q, args, err)
		return core.TotalStat{}, fmt.Errorf("total stats: %w", err)
	}
	return t, nil
}

func (e *Engine) byCategory(ctx context.Context, where string, args []any) ([]core.CategoryStat, error) {
	q := "SELECT COALESCE(category, '" + core.UncategorizedLabel + "') AS label, COUNT(*), SUM(amount) " +
		"FROM expenses " + where + " GROUP BY label ORDER BY SUM(amount) DESC, label ASC"

	out := []core.CategoryStat{}
	err := e.each(ctx, q, args, func(rows *sql.Rows) error {
		var c core.CategoryStat
		if err := rows.Scan(&c.Category, &c.Count, &c.Total); err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		e.logFailure(ctx, "byCategory", q, args, err)
		return nil, fmt.Errorf("category stats: %w", err)
	}
	return out, nil
}

func (e *Engine) byMonth(ctx context.Context, where string, args []any) ([]core.MonthStat, error) {
	month := e.dialect.MonthStart("date")
	q := "SELECT " + month + " AS month, COUNT(*), SUM(amount) " +
		"FROM expenses " + where + " GROUP BY month ORDER BY month DESC"

	out := []core.MonthStat{}
	err := e.each(ctx, q, args, func(rows *sql.Rows) error {
		var m core.MonthStat
		if err := rows.Scan(&m.Month, &m.Count, &m.Total); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	if err != nil {
		e.logFailure(ctx, "byMonth", q, args, err)
		return nil, fmt.Errorf("monthly stats: %w", err)
	}
	return out, nil
}

func (e *Engine) daily(ctx context.Context, where string, args []any) ([]core.DayStat, error) {
	q := "SELECT date, COUNT(*), SUM(amount) " +
		"FROM expenses " + where + " GROUP BY date ORDER BY date DESC LIMIT " + strconv.Itoa(core.DailyWindow)

	out := []core.DayStat{}
	err := e.each(ctx, q, args, func(rows *sql.Rows) error {
		var d core.DayStat
		if err := rows.Scan(&d.Date, &d.Count, &d.Total); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	if err != nil {
		e.logFailure(ctx, "daily", q, args, err)
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	return out, nil
}

func (e *Engine) each(ctx context.Context, q string, args []any, fn func(*sql.Rows) error) error {
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (e *Engine) logFailure(ctx context.Context, view, q string, args []any, err error) {
	if ctx.Err() != nil {
		return
	}
	e.logger.ErrorContext(ctx, "Stats query failed", "view", view, "query", q, "params", args, "error", err)
}
