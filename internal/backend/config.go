package backend

import (
	"errors"
	"fmt"

	"pgexpense/internal/config"
	"pgexpense/internal/query"
	"pgexpense/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		Postgres: storage.PostgresConfig{
			Host:         appConfig.DBHost,
			Port:         appConfig.DBPort,
			User:         appConfig.DBUser,
			Password:     appConfig.DBPassword,
			Name:         appConfig.DBName,
			Schema:       appConfig.DBSchema,
			SSLMode:      appConfig.DBSSLMode,
			MaxOpenConns: appConfig.DBMaxOpenConns,
		},

		SQLiteDBPath:    appConfig.SQLiteDBPath,
		ListingTiebreak: appConfig.ListingTiebreak,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case PostgresBackend:
		if c.Postgres.Host == "" {
			return errors.New("database host is required for postgres backend")
		}
		if c.Postgres.Name == "" {
			return errors.New("database name is required for postgres backend")
		}
		if c.Postgres.Port < 1 || c.Postgres.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", c.Postgres.Port)
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	}

	if c.ListingTiebreak != "" && !query.OrderPolicy(c.ListingTiebreak).IsValid() {
		return fmt.Errorf("invalid listing tiebreak: %s", c.ListingTiebreak)
	}
	// AMQP is optional, so we don't validate it

	return nil
}

// OrderPolicy returns the listing tiebreak, created_at when unset.
func (c Config) OrderPolicy() query.OrderPolicy {
	if c.ListingTiebreak == "" {
		return query.OrderByCreatedAt
	}
	return query.OrderPolicy(c.ListingTiebreak)
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{PostgresBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
