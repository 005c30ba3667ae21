// Package migrations applies embedded goose migrations against a pgx pool.
package migrations

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// Applied is a single migration that ran during Up or Down.
type Applied struct {
	Version int64
	Source  string
}

// Status describes one known migration and whether it has been applied.
type Status struct {
	Version int64
	Source  string
	Applied bool
}

type Runner struct {
	db       *sql.DB
	provider *goose.Provider
	logger   logrus.FieldLogger
}

// NewRunner opens a database/sql handle over pool for goose. Close releases it
// without closing the pool.
func NewRunner(pool *pgxpool.Pool, fsys fs.FS, logger logrus.FieldLogger) (*Runner, error) {
	if pool == nil {
		return nil, errors.New("migrations: pool is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db := stdlib.OpenDBFromPool(pool)
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrations: create provider")
	}
	return &Runner{db: db, provider: provider, logger: logger}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	applied := r.collect(results, "applied migration")
	if err != nil {
		return applied, errors.Wrap(err, "migrations: up")
	}
	return applied, nil
}

// Down rolls back the most recent migration.
func (r *Runner) Down(ctx context.Context) ([]Applied, error) {
	result, err := r.provider.Down(ctx)
	var results []*goose.MigrationResult
	if result != nil {
		results = append(results, result)
	}
	applied := r.collect(results, "rolled back migration")
	if err != nil {
		return applied, errors.Wrap(err, "migrations: down")
	}
	return applied, nil
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migrations: status")
	}
	out := make([]Status, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, Status{
			Version: s.Source.Version,
			Source:  s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}

func (r *Runner) Close() error {
	return r.db.Close()
}

func (r *Runner) collect(results []*goose.MigrationResult, msg string) []Applied {
	out := make([]Applied, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Applied{Version: res.Source.Version, Source: res.Source.Path})
		r.logger.WithFields(logrus.Fields{
			"version":  res.Source.Version,
			"source":   res.Source.Path,
			"duration": res.Duration,
		}).Info(msg)
	}
	return out
}
