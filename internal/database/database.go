package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// GormLogLevel переводит LOG_LEVEL в уровень логгера GORM: SQL-запросы видны только при debug.
func GormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	}
	return logger.Warn
}

// Open открывает GORM-соединение для postgres (dsn в формате key=value) или sqlite (путь/URI).
func Open(driver, dsn, logLevel string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(GormLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}
	return db, nil
}

// OpenSQLite открывает sqlite и сразу применяет миграции, отдельный шаг migrate не нужен.
func OpenSQLite(dsn, logLevel string) (*gorm.DB, error) {
	db, err := Open(DriverSQLite, dsn, logLevel)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// in-memory sqlite живёт, пока открыто хотя бы одно соединение
	sqlDB.SetMaxOpenConns(1)
	if err := migrate(sqlDB, DriverSQLite); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}
