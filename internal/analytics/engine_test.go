package analytics

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgexpense/internal/core"
	applog "pgexpense/internal/log"
	"pgexpense/internal/query"
	"pgexpense/internal/storage"
)

func setup(t *testing.T) (*storage.Repository, *Engine) {
	t.Helper()

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	return storage.NewRepository(db, query.OrderByCreatedAt), NewEngine(db, db.Dialect)
}

func add(t *testing.T, repo *storage.Repository, desc, amount, category string, date core.Date) {
	t.Helper()
	m, err := core.ParseAmount(amount)
	require.NoError(t, err)
	_, err = repo.CreateExpense(context.Background(), core.NewExpense{
		Description: desc,
		Amount:      m,
		Category:    core.StringPtr(category),
		Date:        date,
	})
	require.NoError(t, err)
}

func sumCategories(s core.Stats) decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.ByCategory {
		total = total.Add(c.Total.Amount)
	}
	return total
}

func sumMonths(s core.Stats) decimal.Decimal {
	total := decimal.Zero
	for _, m := range s.ByMonth {
		total = total.Add(m.Total.Amount)
	}
	return total
}

func TestStatsEmptyTable(t *testing.T) {
	_, engine := setup(t)

	stats, err := engine.Stats(context.Background(), core.Filter{})
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.Total.Count)
	assert.True(t, stats.Total.Amount.Amount.IsZero())
	assert.NotNil(t, stats.ByCategory)
	assert.NotNil(t, stats.ByMonth)
	assert.NotNil(t, stats.Daily)
	assert.Empty(t, stats.ByCategory)
	assert.Empty(t, stats.ByMonth)
	assert.Empty(t, stats.Daily)
}

func TestStatsViews(t *testing.T) {
	repo, engine := setup(t)

	add(t, repo, "Coffee", "4.50", core.CategoryFood, core.NewDate(2024, 1, 15))
	add(t, repo, "Lunch", "12.30", core.CategoryFood, core.NewDate(2024, 1, 15))
	add(t, repo, "Train", "40", core.CategoryTransport, core.NewDate(2024, 2, 3))
	add(t, repo, "Gift", "15.20", "", core.NewDate(2024, 2, 20))
	add(t, repo, "Hotel", "120.99", core.CategoryTravel, core.NewDate(2023, 12, 30))

	stats, err := engine.Stats(context.Background(), core.Filter{})
	require.NoError(t, err)

	assert.Equal(t, int64(5), stats.Total.Count)
	assert.Equal(t, "192.99", stats.Total.Amount.String())

	require.Len(t, stats.ByCategory, 4)
	assert.Equal(t, core.CategoryTravel, stats.ByCategory[0].Category)
	assert.Equal(t, core.CategoryTransport, stats.ByCategory[1].Category)
	assert.Equal(t, core.CategoryFood, stats.ByCategory[2].Category)
	assert.Equal(t, int64(2), stats.ByCategory[2].Count)
	assert.Equal(t, "16.80", stats.ByCategory[2].Total.String())
	assert.Equal(t, core.UncategorizedLabel, stats.ByCategory[3].Category)

	require.Len(t, stats.ByMonth, 3)
	assert.Equal(t, "2024-02-01", stats.ByMonth[0].Month.String())
	assert.Equal(t, "2024-01-01", stats.ByMonth[1].Month.String())
	assert.Equal(t, "2023-12-01", stats.ByMonth[2].Month.String())
	assert.Equal(t, "55.20", stats.ByMonth[0].Total.String())

	require.Len(t, stats.Daily, 4)
	assert.Equal(t, "2024-02-20", stats.Daily[0].Date.String())
	assert.Equal(t, int64(2), stats.Daily[2].Count)

	assert.True(t, stats.Total.Amount.Amount.Equal(sumCategories(stats)))
	assert.True(t, stats.Total.Amount.Amount.Equal(sumMonths(stats)))
}

func TestStatsCategoryTieBreaksByLabel(t *testing.T) {
	repo, engine := setup(t)

	add(t, repo, "Movie", "10", core.CategoryEntertainment, core.NewDate(2024, 3, 1))
	add(t, repo, "Pens", "10", core.CategoryEducation, core.NewDate(2024, 3, 1))

	stats, err := engine.Stats(context.Background(), core.Filter{})
	require.NoError(t, err)
	require.Len(t, stats.ByCategory, 2)
	assert.Equal(t, core.CategoryEducation, stats.ByCategory[0].Category)
	assert.Equal(t, core.CategoryEntertainment, stats.ByCategory[1].Category)
}

func TestStatsDailyWindow(t *testing.T) {
	repo, engine := setup(t)

	rows := make([]core.NewExpense, 45)
	start := core.NewDate(2024, 1, 1)
	for i := range rows {
		rows[i] = core.NewExpense{
			Description: "Snack",
			Amount:      core.MoneyFromCents(int64(100 + i)),
			Category:    core.StringPtr(core.CategoryFood),
			Date:        core.DateOf(start.AddDate(0, 0, i)),
		}
	}
	require.NoError(t, repo.InsertBatch(context.Background(), rows, 20))

	stats, err := engine.Stats(context.Background(), core.Filter{})
	require.NoError(t, err)

	require.Len(t, stats.Daily, core.DailyWindow)
	for i := 1; i < len(stats.Daily); i++ {
		assert.True(t, stats.Daily[i-1].Date.After(stats.Daily[i].Date.Time),
			"daily not sorted desc at %d", i)
	}
	assert.Equal(t, "2024-02-14", stats.Daily[0].Date.String())
}

func TestStatsMatchListingForFilters(t *testing.T) {
	repo, engine := setup(t)
	ctx := context.Background()

	add(t, repo, "Coffee", "4.50", core.CategoryFood, core.NewDate(2024, 1, 15))
	add(t, repo, "Bus", "2.75", core.CategoryTransport, core.NewDate(2024, 1, 20))
	add(t, repo, "Dinner", "35", core.CategoryFood, core.NewDate(2024, 2, 2))
	add(t, repo, "Rent", "800", core.CategoryBills, core.NewDate(2024, 3, 1))

	jan1 := core.NewDate(2024, 1, 1)
	feb29 := core.NewDate(2024, 2, 29)
	filters := []core.Filter{
		{},
		{StartDate: &jan1},
		{EndDate: &feb29},
		{StartDate: &jan1, EndDate: &feb29, Category: core.CategoryFood},
		{Category: "Missing"},
	}

	for _, f := range filters {
		list, err := repo.ListExpenses(ctx, f)
		require.NoError(t, err)
		stats, err := engine.Stats(ctx, f)
		require.NoError(t, err)

		assert.Equal(t, int64(len(list)), stats.Total.Count)

		listed := decimal.Zero
		for _, e := range list {
			listed = listed.Add(e.Amount.Amount)
		}
		assert.True(t, listed.Equal(stats.Total.Amount.Amount))
		assert.True(t, stats.Total.Amount.Amount.Equal(sumCategories(stats)))
		assert.True(t, stats.Total.Amount.Amount.Equal(sumMonths(stats)))
	}
}

func TestStatsCancelledContext(t *testing.T) {
	_, engine := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Stats(ctx, core.Filter{})
	assert.Error(t, err)
}

func TestStatsLogsFailedQueryWithComponent(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	engine := NewEngine(db, db.Dialect)
	require.NoError(t, db.Close())

	_, err = engine.Stats(context.Background(), core.Filter{})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Stats query failed")
	assert.Contains(t, buf.String(), `"`+applog.FieldComponent+`":"`+applog.ComponentAnalytics+`"`)
}
