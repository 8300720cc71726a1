package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pgexpense/internal/core"
	"pgexpense/internal/query"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func newExpense(desc, amount, category string, date core.Date) core.NewExpense {
	m, err := core.ParseAmount(amount)
	if err != nil {
		panic(err)
	}
	return core.NewExpense{
		Description: desc,
		Amount:      m,
		Category:    core.StringPtr(category),
		Date:        date,
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
}

func TestCreateExpense(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, query.OrderByCreatedAt)
	ctx := context.Background()

	got, err := repo.CreateExpense(ctx, newExpense("Coffee", "4.50", core.CategoryFood, core.NewDate(2024, 1, 15)))
	require.NoError(t, err)

	assert.Positive(t, got.ID)
	assert.Equal(t, "Coffee", got.Description)
	assert.Equal(t, "4.50", got.Amount.String())
	require.NotNil(t, got.Category)
	assert.Equal(t, core.CategoryFood, *got.Category)
	assert.Equal(t, "2024-01-15", got.Date.String())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCreateExpenseWithoutCategory(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, query.OrderByCreatedAt)
	ctx := context.Background()

	got, err := repo.CreateExpense(ctx, newExpense("Parking", "2", "", core.NewDate(2024, 3, 1)))
	require.NoError(t, err)
	assert.Nil(t, got.Category)

	list, err := repo.ListExpenses(ctx, core.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Category)
	assert.Equal(t, core.UncategorizedLabel, list[0].CategoryLabel())
}

func TestListExpensesOrderingAndFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, policy := range []query.OrderPolicy{query.OrderByCreatedAt, query.OrderByID} {
		t.Run(policy.String(), func(t *testing.T) {
			_, err := db.ExecContext(ctx, "DELETE FROM expenses")
			require.NoError(t, err)

			repo := NewRepository(db, policy)
			first, err := repo.CreateExpense(ctx, newExpense("Lunch", "12", core.CategoryFood, core.NewDate(2024, 2, 10)))
			require.NoError(t, err)
			second, err := repo.CreateExpense(ctx, newExpense("Dinner", "30", core.CategoryFood, core.NewDate(2024, 2, 10)))
			require.NoError(t, err)
			older, err := repo.CreateExpense(ctx, newExpense("Bus", "3", core.CategoryTransport, core.NewDate(2024, 1, 5)))
			require.NoError(t, err)

			list, err := repo.ListExpenses(ctx, core.Filter{})
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []int64{second.ID, first.ID, older.ID},
				[]int64{list[0].ID, list[1].ID, list[2].ID})

			start := core.NewDate(2024, 2, 1)
			list, err = repo.ListExpenses(ctx, core.Filter{StartDate: &start})
			require.NoError(t, err)
			assert.Len(t, list, 2)

			end := core.NewDate(2024, 1, 31)
			list, err = repo.ListExpenses(ctx, core.Filter{EndDate: &end})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, older.ID, list[0].ID)

			list, err = repo.ListExpenses(ctx, core.Filter{Category: core.CategoryTransport})
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "Bus", list[0].Description)

			list, err = repo.ListExpenses(ctx, core.Filter{Category: "Nope"})
			require.NoError(t, err)
			assert.NotNil(t, list)
			assert.Empty(t, list)
		})
	}
}

func TestInsertBatch(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, query.OrderByCreatedAt)
	ctx := context.Background()

	rows := make([]core.NewExpense, 25)
	for i := range rows {
		rows[i] = newExpense("Groceries", "10.25", core.CategoryFood, core.NewDate(2024, 5, 1+i))
	}

	require.NoError(t, repo.InsertBatch(ctx, rows, 10))

	n, err := repo.CountExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
}

func TestInsertBatchIsAtomic(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, query.OrderByCreatedAt)
	ctx := context.Background()

	rows := make([]core.NewExpense, 20)
	for i := range rows {
		rows[i] = newExpense("Taxi", "18", core.CategoryTransport, core.NewDate(2024, 6, 1))
	}
	// Blank description violates the table CHECK in the second chunk.
	rows[15].Description = "   "

	err := repo.InsertBatch(ctx, rows, 10)
	require.Error(t, err)

	n, err := repo.CountExpenses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInsertBatchRejectsOversizedChunk(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db, query.OrderByCreatedAt)

	rows := []core.NewExpense{newExpense("Book", "20", core.CategoryEducation, core.NewDate(2024, 1, 1))}
	err := repo.InsertBatch(context.Background(), rows, query.MaxRowsPerStatement(query.SQLite)+1)
	assert.Error(t, err)

	err = repo.InsertBatch(context.Background(), rows, 0)
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "app",
		Password: "p'ss word",
		Name:     "expenses",
		Schema:   "tracker",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		`host='db.internal' port=5432 user='app' password='p\'ss word' dbname='expenses' sslmode='disable' search_path='tracker,public'`,
		cfg.DSN())
}

// Runs against a real server only when PGEXPENSE_TEST_POSTGRES_DSN points at one.
func TestPostgresRoundTrip(t *testing.T) {
	dsn := os.Getenv("PGEXPENSE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PGEXPENSE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	require.NoError(t, RunMigrations("postgres", dsn))

	sqlDB, err := openDSN(ctx, "postgres", dsn)
	require.NoError(t, err)
	db := &DB{DB: sqlDB, Dialect: query.Postgres, driverName: "postgres", dsn: dsn}
	defer db.Close()

	repo := NewRepository(db, query.OrderByCreatedAt)
	before, err := repo.CountExpenses(ctx)
	require.NoError(t, err)

	got, err := repo.CreateExpense(ctx, newExpense("Coffee", "4.50", core.CategoryFood, core.Today()))
	require.NoError(t, err)
	assert.Equal(t, "4.50", got.Amount.String())

	after, err := repo.CountExpenses(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)

	_, err = db.ExecContext(ctx, "DELETE FROM expenses WHERE id = $1", got.ID)
	require.NoError(t, err)
}
