package persist

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/illarion/server/internal/config"
)

const sqlitePrefix = "sqlite:"

// DB is the game database. PostgreSQL goes through a pgx pool; "sqlite:"
// DSNs open an embedded modernc SQLite database. Repositories only use
// SQL, so the queries are written to run on both.
type DB struct {
	SQL     *sql.DB
	Pool    *pgxpool.Pool // nil for SQLite
	Dialect string        // goose dialect name
	log     *zap.Logger
}

func NewDB(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	if path, ok := strings.CutPrefix(cfg.DSN, sqlitePrefix); ok {
		return openSQLite(ctx, path, log)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.MaxIdleConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &DB{SQL: stdlib.OpenDBFromPool(pool), Pool: pool, Dialect: "postgres", log: log}, nil
}

func openSQLite(ctx context.Context, path string, log *zap.Logger) (*DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: an in-memory database lives and dies with it, and
	// SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return &DB{SQL: db, Dialect: "sqlite3", log: log}, nil
}

func (db *DB) Close() {
	db.SQL.Close()
	if db.Pool != nil {
		db.Pool.Close()
	}
}

var pgPlaceholder = regexp.MustCompile(`\$[0-9]+`)

// Rebind turns $n placeholders into ? for SQLite. Queries must use each
// placeholder once, in order.
func (db *DB) Rebind(query string) string {
	if db.Pool != nil {
		return query
	}
	return pgPlaceholder.ReplaceAllString(query, "?")
}
