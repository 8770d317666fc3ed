// Package database opens the gorm store for either supported driver and exposes the same
// connection pool to sqlx for aggregate queries.
package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/civic-complaints/internal"
	categoryDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/category"
	complaintDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/complaint"
	userDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/user"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// sqlx driver names matching the database/sql drivers the gorm dialectors register.
const (
	sqlxPostgres = "pgx"
	sqlxSQLite   = "sqlite3"
)

// Models lists every table the embedded store creates through AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&complaintDatamodel.Complaint{},
		&complaintDatamodel.Comment{},
		&complaintDatamodel.ComplaintSequence{},
		&categoryDatamodel.ComplaintCategory{},
	}
}

func Open(cfg internal.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case internal.DriverPostgres:
		dialector = postgres.Open(cfg.Source)
	case internal.DriverSQLite:
		dialector = sqliteDialector(cfg.Source)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == internal.DriverSQLite {
		// sqlite allows a single writer; a larger pool only produces SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		if cfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
		if cfg.ConnMaxIdleTime > 0 {
			sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
		}
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == internal.DriverSQLite {
		if err := db.AutoMigrate(Models()...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}

	if logger != nil {
		logger.Info("database connected", "driver", cfg.Driver)
	}
	return db, nil
}

// OpenInMemory returns a migrated private sqlite database. Used by tests and local demos.
func OpenInMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqliteDialector(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every new connection to :memory: is a fresh empty database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, err
	}
	return db, nil
}

// SQLX wraps the pool behind db so sqlx queries share connections and bind style with gorm.
func SQLX(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	driver := sqlxPostgres
	if db.Dialector.Name() == "sqlite" {
		driver = sqlxSQLite
	}
	return sqlx.NewDb(sqlDB, driver), nil
}
