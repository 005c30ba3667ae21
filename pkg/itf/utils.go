package itf

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/migrations"
)

// DSNEnv names the variable holding the Postgres DSN integration tests run
// against. Tests are skipped when it is empty.
const DSNEnv = "RECRUITMENT_TEST_DSN"

// DSN returns the integration database DSN or skips tb.
func DSN(tb testing.TB) string {
	tb.Helper()
	dsn := strings.TrimSpace(os.Getenv(DSNEnv))
	if dsn == "" {
		tb.Skipf("%s is not set", DSNEnv)
	}
	return dsn
}

// SchemaName derives a unique, identifier-safe schema name for a test.
func SchemaName(prefix string) string {
	if prefix == "" {
		prefix = "it"
	}
	return prefix + "_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")
}

// CreateSchema creates schema through admin and registers a cascade drop on
// test cleanup.
func CreateSchema(tb testing.TB, ctx context.Context, admin *pgxpool.Pool, schema string) {
	tb.Helper()
	ident := pgx.Identifier{schema}.Sanitize()
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+ident); err != nil {
		tb.Fatalf("create schema %s: %v", schema, err)
	}
	tb.Cleanup(func() {
		dropCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := admin.Exec(dropCtx, "DROP SCHEMA IF EXISTS "+ident+" CASCADE"); err != nil {
			tb.Logf("Warning: failed to drop schema %s: %v", schema, err)
		}
	})
}

// NewPool opens a small pool whose connections resolve unqualified names in
// schema first.
func NewPool(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 8
	config.MinConns = 1
	config.MaxConnLifetime = time.Minute * 5
	config.MaxConnIdleTime = time.Second * 30
	if schema != "" {
		config.ConnConfig.RuntimeParams["search_path"] = schema
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	return pool, nil
}

// Migrate applies every migration in fsys to pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger logrus.FieldLogger) (int, error) {
	runner, err := migrations.NewRunner(pool, fsys, logger)
	if err != nil {
		return 0, err
	}
	defer func() { _ = runner.Close() }()
	applied, err := runner.Up(ctx)
	return len(applied), err
}
