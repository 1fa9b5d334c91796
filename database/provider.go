package database

import (
	"fmt"
	"strings"

	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/services/logging"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

func normalizeDriver(driver string) string {
	switch strings.ToLower(driver) {
	case "postgresql":
		return DriverPostgres
	case "sqlite3":
		return DriverSQLite
	default:
		return strings.ToLower(driver)
	}
}

func ProvideDatabase(cfg config.Config, logger *logging.Service) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}
	if strings.EqualFold(cfg.Log.Level, string(logging.Debug)) {
		gormCfg.Logger = gormlogger.Default.LogMode(gormlogger.Info)
	}

	var dialector gorm.Dialector
	switch normalizeDriver(cfg.Database.Driver) {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.Database.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.Database.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// each sqlite :memory: connection is a separate database
	if normalizeDriver(cfg.Database.Driver) == DriverSQLite && strings.Contains(cfg.Database.DSN, ":memory:") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access connection pool: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Info("database connection established",
		zap.String("driver", normalizeDriver(cfg.Database.Driver)))

	return db, nil
}
