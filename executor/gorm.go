package executor

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/go-data-exporter/cursor/source"
)

// Gorm executes raw queries through a gorm handle.
type Gorm struct {
	db *gorm.DB
}

var _ source.Executor = (*Gorm)(nil)

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// DB returns the gorm handle.
func (g *Gorm) DB() *gorm.DB {
	return g.db
}

func (g *Gorm) Execute(ctx context.Context, query string, params []any) (source.ResultHandle, error) {
	rows, err := g.db.WithContext(ctx).Raw(query, params...).Rows()
	if err != nil {
		return nil, errors.Wrap(err, "failed to run query")
	}
	return FromSQLRows(rows)
}

func (g *Gorm) GetOne(ctx context.Context, query string, params []any) (any, error) {
	var v any
	if err := g.db.WithContext(ctx).Raw(query, params...).Row().Scan(&v); err != nil {
		return nil, errors.Wrap(err, "failed to run query")
	}
	return scalar(v), nil
}

// OpenSQLite opens the sqlite database at path and migrates models. An
// in-memory database is pinned to a single connection so every query sees
// the same data.
func OpenSQLite(path string, models ...any) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %s", path)
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "failed to access connection pool")
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, errors.Wrap(err, "failed to migrate models")
		}
	}
	return db, nil
}
