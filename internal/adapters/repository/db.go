package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the database named by dbURL and migrates the schema.
// Accepted forms: sqlite://path/to.db, sqlite://:memory:, postgres://... and
// postgresql://...
func Open(ctx context.Context, dbURL string, opts ...Option) (*GormStore, error) {
	s := openSettings{maxConns: 20, maxIdleTime: time.Hour, migrate: true}
	for _, opt := range opts {
		opt(&s)
	}

	var dial gorm.Dialector
	isSqlite := false
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		path := strings.TrimPrefix(dbURL, "sqlite://")
		if !strings.HasPrefix(path, ":memory:") {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dial = sqlite.Open(path)
		isSqlite = true
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		dial = postgres.Open(dbURL)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, redact(dbURL))
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqldb, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if isSqlite {
		// One connection: :memory: databases are per connection and SQLite
		// serialises writers anyway.
		sqldb.SetMaxOpenConns(1)
	} else {
		sqldb.SetMaxOpenConns(s.maxConns)
		sqldb.SetMaxIdleConns(s.maxConns)
	}
	sqldb.SetConnMaxIdleTime(s.maxIdleTime)

	setup := db.WithContext(ctx)
	if isSqlite {
		if err := setup.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
		if err := setup.Exec("PRAGMA synchronous=normal;").Error; err != nil {
			return nil, fmt.Errorf("sqlite pragma: %w", err)
		}
	}

	if s.migrate {
		if err := setup.AutoMigrate(&entryRow{}, &ratingRow{}, &reviewRow{}, &historyRow{}, &auditRow{}); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &GormStore{queries: queries{db: db}}, nil
}

// redact drops credentials from a URL-ish string for error messages.
func redact(u string) string {
	if at := strings.LastIndex(u, "@"); at >= 0 {
		if scheme := strings.Index(u, "://"); scheme >= 0 && scheme < at {
			return u[:scheme+3] + "***" + u[at:]
		}
	}
	return u
}
