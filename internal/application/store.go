package application

import (
	"fmt"

	"github.com/psds-microservice/helpdesk-service/internal/config"
	"github.com/psds-microservice/helpdesk-service/internal/database"
	"github.com/psds-microservice/helpdesk-service/internal/repository"
)

// OpenRepository выбирает хранилище по STORE_DRIVER. Для postgres сначала применяются миграции.
// Возвращаемая функция освобождает соединение с БД (для memory ничего не делает).
func OpenRepository(cfg *config.Config) (repository.Repository, func() error, error) {
	switch cfg.StoreDriver {
	case database.DriverMemory:
		return repository.NewMemory(), func() error { return nil }, nil
	case database.DriverPostgres:
		if err := database.MigrateUp(cfg.DatabaseURL()); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		db, err := database.Open(database.DriverPostgres, cfg.DSN(), cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		return repository.NewGorm(db), sqlDB.Close, nil
	case database.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath, cfg.LogLevel)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		return repository.NewGorm(db), sqlDB.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
