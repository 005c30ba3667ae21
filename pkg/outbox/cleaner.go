package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner periodically deletes published rows older than the retention.
type Cleaner struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
	opts  CleanerOptions
}

func NewCleaner(pool *pgxpool.Pool, table pgx.Identifier, opts CleanerOptions) (*Cleaner, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	opts.setDefaults()
	return &Cleaner{pool: pool, table: table, opts: opts}, nil
}

func (c *Cleaner) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		removed, err := c.CleanOnce(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.opts.Logger.WithError(err).WithField("table", TableLabel(c.table)).Warn("outbox: cleaner tick failed")
			continue
		}
		if removed > 0 {
			c.opts.Logger.WithField("table", TableLabel(c.table)).WithField("removed", removed).Debug("outbox: cleaned rows")
		}
	}
}

// CleanOnce runs a single cleanup pass and reports how many rows it removed.
func (c *Cleaner) CleanOnce(ctx context.Context) (int64, error) {
	now := time.Now()
	tableName := c.table.Sanitize()

	tag, err := c.pool.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE published_at IS NOT NULL AND published_at < $1`, tableName),
		now.Add(-c.opts.Retention),
	)
	if err != nil {
		return 0, fmt.Errorf("outbox cleaner delete published: %w", err)
	}
	removed := tag.RowsAffected()

	if c.opts.DeadRetention > 0 {
		tag, err = c.pool.Exec(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE published_at IS NULL AND attempts >= $1 AND created_at < $2`, tableName),
			c.opts.MaxAttempts, now.Add(-c.opts.DeadRetention),
		)
		if err != nil {
			return removed, fmt.Errorf("outbox cleaner delete dead: %w", err)
		}
		removed += tag.RowsAffected()
	}
	return removed, nil
}
