package outbox

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// Relay moves committed outbox rows to a Dispatcher. Rows are claimed with
// FOR UPDATE SKIP LOCKED, so several relays may share a table; with
// SingleActive only the advisory-lock holder polls.
type Relay struct {
	pool       *pgxpool.Pool
	table      pgx.Identifier
	dispatcher Dispatcher
	opts       RelayOptions
	sql        relayQueries

	lockKey int64

	m          *metrics
	tableLabel string
}

type relayQueries struct {
	claim string
	lock  string
	ack   string
	retry string
	dead  string
	depth string
}

func newRelayQueries(table pgx.Identifier) relayQueries {
	t := table.Sanitize()
	return relayQueries{
		claim: `SELECT id, topic, payload, event_id, sequence, attempts, created_at FROM ` + t + `
			WHERE published_at IS NULL
			  AND available_at <= $1
			  AND attempts < $2
			  AND (locked_at IS NULL OR locked_at < $3)
			ORDER BY available_at, sequence
			LIMIT $4
			FOR UPDATE SKIP LOCKED`,
		lock:  `UPDATE ` + t + ` SET locked_at = $1, attempts = attempts + 1 WHERE id = ANY($2)`,
		ack:   `UPDATE ` + t + ` SET published_at = now(), locked_at = NULL, last_error = NULL WHERE id = $1 AND published_at IS NULL`,
		retry: `UPDATE ` + t + ` SET locked_at = NULL, last_error = $2, available_at = $3 WHERE id = $1 AND published_at IS NULL`,
		dead:  `UPDATE ` + t + ` SET locked_at = NULL, last_error = $2, available_at = now() WHERE id = $1 AND published_at IS NULL`,
		depth: `SELECT count(*), count(*) FILTER (WHERE locked_at IS NOT NULL) FROM ` + t + ` WHERE published_at IS NULL`,
	}
}

func NewRelay(pool *pgxpool.Pool, table pgx.Identifier, dispatcher Dispatcher, opts RelayOptions) (*Relay, error) {
	if pool == nil {
		return nil, invalidConfig("pool is required")
	}
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	if dispatcher == nil {
		return nil, invalidConfig("dispatcher is required")
	}

	opts.setDefaults()
	label := TableLabel(table)
	return &Relay{
		pool:       pool,
		table:      table,
		dispatcher: dispatcher,
		opts:       opts,
		sql:        newRelayQueries(table),
		lockKey:    advisoryLockKey("outbox:" + label),
		m:          getMetrics(),
		tableLabel: label,
	}, nil
}

func (r *Relay) Run(ctx context.Context) error {
	if ctx == nil {
		return invalidConfig("ctx is required")
	}
	if !r.opts.SingleActive {
		r.m.relayLeader.WithLabelValues(r.tableLabel).Set(1)
		return r.runLoop(ctx, nil)
	}

	for {
		leader, conn, err := r.campaign(ctx)
		if err != nil && ctx.Err() == nil {
			r.opts.Logger.WithError(err).WithField("table", r.tableLabel).Warn("outbox: leader election failed")
		}
		if leader {
			r.m.relayLeader.WithLabelValues(r.tableLabel).Set(1)
			r.opts.Logger.WithField("table", r.tableLabel).Info("outbox: relay became leader")
			err = r.runLoop(ctx, conn)
			_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey)
			conn.Release()
			return err
		}
		r.m.relayLeader.WithLabelValues(r.tableLabel).Set(0)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.opts.PollInterval):
		}
	}
}

// campaign returns a held connection only when it won the advisory lock.
func (r *Relay) campaign(ctx context.Context) (bool, *pgxpool.Conn, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, nil, err
	}
	var won bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&won); err != nil {
		conn.Release()
		return false, nil, err
	}
	if !won {
		conn.Release()
		return false, nil, nil
	}
	return true, conn, nil
}

func (r *Relay) runLoop(ctx context.Context, conn *pgxpool.Conn) error {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	nextDepthAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if time.Now().After(nextDepthAt) {
			if err := r.observeQueueDepth(ctx, conn); err != nil {
				r.opts.Logger.WithError(err).Debug("outbox: observe queue depth failed")
			}
			nextDepthAt = time.Now().Add(r.opts.ObserveQueueDepthEvery)
		}

		if err := r.processOnce(ctx, conn); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.opts.Logger.WithError(err).Warn("outbox: process tick failed")
		}
	}
}

type claimed struct {
	ID         uuid.UUID
	Topic      string
	Payload    []byte
	EventID    uuid.UUID
	Sequence   int64
	Attempts   int
	EnqueuedAt time.Time
}

// ProcessOnce claims and dispatches one batch.
func (r *Relay) ProcessOnce(ctx context.Context) error {
	return r.processOnce(ctx, nil)
}

func (r *Relay) processOnce(ctx context.Context, conn *pgxpool.Conn) error {
	now := time.Now()
	batch, err := r.claim(ctx, conn, now, now.Add(-r.opts.LockTTL))
	if err != nil {
		return err
	}
	for _, c := range batch {
		r.deliver(ctx, conn, c)
	}
	return nil
}

func (r *Relay) deliver(ctx context.Context, conn *pgxpool.Conn, c claimed) {
	log := r.messageLog(c)

	dispatchCtx, cancel := context.WithTimeout(ctx, r.opts.DispatchTimeout)
	start := time.Now()
	err := r.dispatcher.Dispatch(dispatchCtx, DispatchedMessage{
		Meta: Meta{
			Table:      r.table,
			Topic:      c.Topic,
			EventID:    c.EventID,
			Sequence:   c.Sequence,
			Attempts:   c.Attempts,
			EnqueuedAt: c.EnqueuedAt,
		},
		Payload: c.Payload,
	})
	cancel()
	latency := time.Since(start)

	if err == nil {
		r.recordDispatch(c.Topic, "success", latency)
		if _, ackErr := r.db(conn).Exec(ctx, r.sql.ack, c.ID); ackErr != nil {
			log.WithError(ackErr).Warn("outbox: ack failed")
			return
		}
		if !c.EnqueuedAt.IsZero() {
			log = log.WithField("lag", time.Since(c.EnqueuedAt).String())
		}
		log.Debug("outbox: delivered")
		return
	}

	r.recordDispatch(c.Topic, "failure", latency)
	lastErr := truncateError(err, r.opts.LastErrorMaxLen)

	if c.Attempts >= r.opts.MaxAttempts {
		r.m.deadTotal.WithLabelValues(r.tableLabel, c.Topic).Inc()
		log.WithError(err).Error("outbox: message is dead")
		if _, deadErr := r.db(conn).Exec(ctx, r.sql.dead, c.ID, lastErr); deadErr != nil {
			log.WithError(deadErr).Warn("outbox: dead update failed")
		}
		return
	}

	next := time.Now().Add(backoff(c.Attempts, r.opts.MaxBackoff) + jitter(r.opts.Rand, r.opts.JitterMax))
	log.WithError(err).WithField("retry_at", next.Format(time.RFC3339)).Info("outbox: dispatch failed, retrying")
	if _, retryErr := r.db(conn).Exec(ctx, r.sql.retry, c.ID, lastErr, next); retryErr != nil {
		log.WithError(retryErr).Warn("outbox: retry update failed")
	}
}

// claim locks a batch of due rows and bumps their attempt counters in one
// transaction.
func (r *Relay) claim(ctx context.Context, conn *pgxpool.Conn, now, lockCutoff time.Time) ([]claimed, error) {
	var batch []claimed
	err := pgx.BeginFunc(ctx, r.db(conn), func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, r.sql.claim, now, r.opts.MaxAttempts, lockCutoff, r.opts.BatchSize)
		if err != nil {
			return fmt.Errorf("outbox claim select: %w", err)
		}
		var ids []uuid.UUID
		for rows.Next() {
			var c claimed
			if err := rows.Scan(&c.ID, &c.Topic, &c.Payload, &c.EventID, &c.Sequence, &c.Attempts, &c.EnqueuedAt); err != nil {
				rows.Close()
				return fmt.Errorf("outbox claim scan: %w", err)
			}
			c.Attempts++
			batch = append(batch, c)
			ids = append(ids, c.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("outbox claim rows: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, r.sql.lock, now, pgtype.FlatArray[uuid.UUID](ids)); err != nil {
			return fmt.Errorf("outbox claim update: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *Relay) observeQueueDepth(ctx context.Context, conn *pgxpool.Conn) error {
	var pending, locked int64
	if err := r.db(conn).QueryRow(ctx, r.sql.depth).Scan(&pending, &locked); err != nil {
		return fmt.Errorf("outbox queue depth: %w", err)
	}
	r.m.pending.WithLabelValues(r.tableLabel).Set(float64(pending))
	r.m.locked.WithLabelValues(r.tableLabel).Set(float64(locked))
	return nil
}

func (r *Relay) recordDispatch(topic, result string, latency time.Duration) {
	r.m.dispatchTotal.WithLabelValues(r.tableLabel, topic, result).Inc()
	r.m.dispatchLatency.WithLabelValues(r.tableLabel, topic, result).Observe(latency.Seconds())
}

// relayDB is satisfied by both the pool and a leader's held connection.
type relayDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Relay) db(conn *pgxpool.Conn) relayDB {
	if conn != nil {
		return conn
	}
	return r.pool
}

func (r *Relay) messageLog(c claimed) *logrus.Entry {
	fields := topicFields(c.Topic)
	fields["table"] = r.tableLabel
	fields["event_id"] = c.EventID.String()
	fields["sequence"] = c.Sequence
	fields["attempts"] = c.Attempts
	return r.opts.Logger.WithFields(fields)
}

// topicFields splits "<module>.<subject>.<action>.v<N>" topics, e.g.
// recruitment.employee.hired.v1, into log fields. Anything else is logged as
// the raw topic only.
func topicFields(topic string) logrus.Fields {
	fields := logrus.Fields{"topic": topic}
	parts := strings.Split(topic, ".")
	if len(parts) < 3 {
		return fields
	}
	if last := parts[len(parts)-1]; strings.HasPrefix(last, "v") && isDigits(last[1:]) {
		fields["event_version"] = last
		parts = parts[:len(parts)-1]
	}
	if len(parts) < 3 {
		return fields
	}
	fields["module"] = parts[0]
	fields["event"] = strings.Join(parts[1:], ".")
	return fields
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
