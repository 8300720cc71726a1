package backend

import (
	"context"
	"fmt"

	"pgexpense/internal/amqp"
	"pgexpense/internal/analytics"
	applog "pgexpense/internal/log"
	"pgexpense/internal/services"
	"pgexpense/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	db, err := f.openDatabase(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", config.Type, err)
	}

	repo := storage.NewRepository(db, config.OrderPolicy())
	engine := analytics.NewEngine(db, db.Dialect)

	// Initialize AMQP client (optional)
	var (
		amqpClient *amqp.Client
		publisher  services.EventPublisher
	)
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events",
				applog.FieldComponent, applog.ComponentAMQP,
				applog.FieldError, err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange)
		}
	}

	expenseService := services.NewExpenseService(repo, engine, publisher)
	if amqpClient != nil {
		expenseService.OnClose(amqpClient.Close)
	}
	expenseService.OnClose(db.Close)

	f.logger.Info("Initialized backend",
		"type", config.Type.String(),
		"listing_tiebreak", config.OrderPolicy().String(),
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Service:    expenseService,
		Repository: repo,
		Publisher:  amqpClient,
		Cleanup:    expenseService.Close,
	}, nil
}

func (f *DefaultFactory) openDatabase(ctx context.Context, config Config) (*storage.DB, error) {
	switch config.Type {
	case PostgresBackend:
		db, err := storage.OpenPostgres(ctx, config.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		f.logger.Info("Connected to PostgreSQL",
			"host", config.Postgres.Host,
			"port", config.Postgres.Port,
			"database", config.Postgres.Name,
			"schema", config.Postgres.Schema)
		return db, nil

	case SQLiteBackend:
		db, err := storage.OpenSQLite(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		f.logger.Info("Opened SQLite database", "db_path", config.SQLiteDBPath)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
