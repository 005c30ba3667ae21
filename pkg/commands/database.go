package commands

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/configuration"
)

const connectTimeout = 10 * time.Second

// GetDatabasePool connects with dsn, or with the configured database when dsn
// is empty, and pings before returning.
func GetDatabasePool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		dsn = configuration.Use().Database.Opts
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "db connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "db ping")
	}
	return pool, nil
}
