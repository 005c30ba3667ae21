// Package itf builds integration test environments on a throwaway Postgres
// schema.
package itf

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/infrastructure/persistence/schema"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/application"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
)

// TestContext provides a fluent API for building test contexts
type TestContext struct {
	ctx          context.Context
	modules      []application.Module
	migrations   []fs.FS
	operator     uint
	schemaPrefix string
	timeout      time.Duration
}

// NewTestContext creates a builder that migrates the recruitment schema by
// default.
func NewTestContext() *TestContext {
	return &TestContext{
		ctx:          context.Background(),
		migrations:   []fs.FS{schema.Migrations},
		schemaPrefix: "recruitment_it",
		timeout:      60 * time.Second,
	}
}

// WithModules adds modules registered on the test application.
func (tc *TestContext) WithModules(modules ...application.Module) *TestContext {
	tc.modules = append(tc.modules, modules...)
	return tc
}

// WithMigrations replaces the migration sources applied to the schema.
func (tc *TestContext) WithMigrations(sources ...fs.FS) *TestContext {
	tc.migrations = sources
	return tc
}

// WithOperator marks every call made with the built context as coming from
// employeeID.
func (tc *TestContext) WithOperator(employeeID uint) *TestContext {
	tc.operator = employeeID
	return tc
}

func (tc *TestContext) WithSchemaPrefix(prefix string) *TestContext {
	tc.schemaPrefix = prefix
	return tc
}

func (tc *TestContext) WithTimeout(d time.Duration) *TestContext {
	tc.timeout = d
	return tc
}

// Build creates the schema, migrates it and wires the application. It skips
// tb when no integration database is configured.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()
	dsn := DSN(tb)

	ctx, cancel := context.WithTimeout(tc.ctx, tc.timeout)
	tb.Cleanup(cancel)

	admin, err := NewPool(ctx, dsn, "")
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(admin.Close)

	schemaName := SchemaName(tc.schemaPrefix)
	CreateSchema(tb, ctx, admin, schemaName)

	pool, err := NewPool(ctx, dsn, schemaName)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(pool.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	for _, src := range tc.migrations {
		if _, err := Migrate(ctx, pool, src, logger); err != nil {
			tb.Fatal(err)
		}
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := application.LoadModules(app, tc.modules...); err != nil {
		tb.Fatal(err)
	}

	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))
	if tc.operator != 0 {
		ctx = composables.WithOperator(ctx, tc.operator)
	}

	return &TestEnvironment{
		Ctx:    ctx,
		Pool:   pool,
		App:    app,
		Schema: schemaName,
	}
}

// TestEnvironment contains all test dependencies
type TestEnvironment struct {
	Ctx    context.Context
	Pool   *pgxpool.Pool
	App    application.Application
	Schema string
}

// Service retrieves a service from the application
func (te *TestEnvironment) Service(service interface{}) interface{} {
	return te.App.Service(service)
}

// GetService is a generic helper that retrieves and casts a service
func GetService[T any](te *TestEnvironment) *T {
	var zero T
	service := te.App.Service(zero)
	if service == nil {
		return nil
	}
	return service.(*T)
}

// WithTx begins a transaction that is rolled back on cleanup unless the test
// commits it first.
func (te *TestEnvironment) WithTx(tb testing.TB) (context.Context, pgx.Tx) {
	tb.Helper()
	tx, err := te.Pool.Begin(te.Ctx)
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := tx.Rollback(context.Background()); err != nil && err != pgx.ErrTxClosed {
			tb.Logf("Warning: failed to rollback transaction: %v", err)
		}
	})
	return composables.WithTx(te.Ctx, tx), tx
}
