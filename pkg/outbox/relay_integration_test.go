//go:build integration

package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/itf"
)

type stubDispatcher struct {
	mu        sync.Mutex
	failTopic string
	calls     []DispatchedMessage
}

func (d *stubDispatcher) Dispatch(ctx context.Context, msg DispatchedMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, msg)
	if msg.Meta.Topic == d.failTopic {
		return errors.New("poison")
	}
	return nil
}

func TestRelay_Integration_PoisonMessageDoesNotBlock(t *testing.T) {
	dsn := itf.DSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	tableName := "outbox_it_" + uuid.NewString()[:8]
	table, err := ParseIdentifier("public." + tableName)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE %s (
  id           UUID        NOT NULL DEFAULT gen_random_uuid(),
  topic        TEXT        NOT NULL,
  payload      JSONB       NOT NULL,
  event_id     UUID        NOT NULL,
  sequence     BIGSERIAL   NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  published_at TIMESTAMPTZ NULL,
  attempts     INT         NOT NULL DEFAULT 0,
  available_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  locked_at    TIMESTAMPTZ NULL,
  last_error   TEXT        NULL,
  CONSTRAINT %s_pkey PRIMARY KEY (id),
  CONSTRAINT %s_event_id_key UNIQUE (event_id)
)`, table.Sanitize(), tableName, tableName))
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table.Sanitize()))
	})

	p, err := NewPublisher(table)
	require.NoError(t, err)

	failTopic := "recruitment.test.fail.v1"
	okTopic := "recruitment.test.ok.v1"
	eventFail := uuid.New()
	eventOK := uuid.New()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = p.Enqueue(ctx, tx, Message{Topic: failTopic, EventID: eventFail, Payload: []byte(`{"x":1}`)})
	require.NoError(t, err)
	_, err = p.Enqueue(ctx, tx, Message{Topic: okTopic, EventID: eventOK, Payload: []byte(`{"y":2}`)})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	t.Run("enqueue is idempotent by event_id", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		evt := uuid.New()
		seq1, err := p.Enqueue(ctx, tx, Message{Topic: okTopic, EventID: evt, Payload: []byte(`{"z":3}`)})
		require.NoError(t, err)
		seq2, err := p.Enqueue(ctx, tx, Message{Topic: okTopic, EventID: evt, Payload: []byte(`{"z":3}`)})
		require.NoError(t, err)
		assert.Equal(t, seq1, seq2)
	})

	dispatcher := &stubDispatcher{failTopic: failTopic}
	relay, err := NewRelay(pool, table, dispatcher, RelayOptions{
		PollInterval:           10 * time.Millisecond,
		BatchSize:              10,
		LockTTL:                time.Second,
		MaxAttempts:            1,
		LastErrorMaxLen:        1024,
		ObserveQueueDepthEvery: time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, relay.ProcessOnce(ctx))
	assert.Len(t, dispatcher.calls, 2)

	var publishedOK bool
	require.NoError(t, pool.QueryRow(ctx, fmt.Sprintf(`SELECT published_at IS NOT NULL FROM %s WHERE event_id=$1`, table.Sanitize()), eventOK).Scan(&publishedOK))
	assert.True(t, publishedOK)

	var attempts int
	var lastErr *string
	require.NoError(t, pool.QueryRow(ctx, fmt.Sprintf(`SELECT attempts, last_error FROM %s WHERE event_id=$1`, table.Sanitize()), eventFail).Scan(&attempts, &lastErr))
	assert.Equal(t, 1, attempts)
	require.NotNil(t, lastErr)
	assert.Equal(t, "poison", *lastErr)

	require.NoError(t, relay.ProcessOnce(ctx))
	assert.Len(t, dispatcher.calls, 2, "dead messages are not claimed again")
}
