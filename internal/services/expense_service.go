package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pgexpense/internal/core"
)

// ExpenseStore persists and lists expense records.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	ListExpenses(ctx context.Context, f core.Filter) ([]core.Expense, error)
	Ping(ctx context.Context) error
}

// StatsEngine computes statistics over filtered expenses.
type StatsEngine interface {
	Stats(ctx context.Context, f core.Filter) (core.Stats, error)
}

// EventPublisher announces stored expenses to other systems.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
}

// ExpenseService orchestrates expense operations across storage, analytics and AMQP
type ExpenseService struct {
	store     ExpenseStore
	stats     StatsEngine
	publisher EventPublisher
	closers   []func() error
}

// NewExpenseService wires the service. publisher may be nil.
func NewExpenseService(store ExpenseStore, stats StatsEngine, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		stats:     stats,
		publisher: publisher,
	}
}

// OnClose registers a cleanup run by Close, in registration order.
func (s *ExpenseService) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// CreateExpense validates and stores an expense, then publishes
// expense.created. A publish failure is logged and does not fail the call.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	expense, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	if err := s.publishCreated(ctx, expense); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense created message",
			"id", expense.ID, "error", err)
	}

	return expense, nil
}

// ListExpenses returns the expenses matching f, most recent first.
func (s *ExpenseService) ListExpenses(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// Stats returns the statistics of the expenses matching f.
func (s *ExpenseService) Stats(ctx context.Context, f core.Filter) (core.Stats, error) {
	stats, err := s.stats.Stats(ctx, f)
	if err != nil {
		return core.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return stats, nil
}

// Ready reports whether the storage backend is reachable.
func (s *ExpenseService) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ExpenseService) publishCreated(ctx context.Context, e core.Expense) error {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping expense created message")
		return nil
	}
	return s.publisher.PublishExpenseCreated(ctx, e)
}

// Close runs the registered cleanups and joins their errors.
func (s *ExpenseService) Close() error {
	var errs []error
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
