package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
)

type Publisher interface {
	// Enqueue writes msg on tx. Enqueueing the same EventID twice returns the
	// original sequence.
	Enqueue(ctx context.Context, tx composables.Tx, msg Message) (sequence int64, err error)
}

type publisher struct {
	table pgx.Identifier
	m     *metrics
}

func NewPublisher(table pgx.Identifier) (Publisher, error) {
	if len(table) == 0 {
		return nil, invalidConfig("table is required")
	}
	return &publisher{table: table, m: getMetrics()}, nil
}

func (p *publisher) Enqueue(ctx context.Context, tx composables.Tx, msg Message) (int64, error) {
	if isZeroUUID(msg.EventID) {
		return 0, invalidMessage("event_id is required")
	}
	if msg.Topic == "" {
		return 0, invalidMessage("topic is required")
	}
	if len(msg.Payload) == 0 || !json.Valid(msg.Payload) {
		return 0, invalidMessage("payload must be valid JSON")
	}

	q := fmt.Sprintf(
		`INSERT INTO %s (topic, payload, event_id, available_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
		 RETURNING sequence`,
		p.table.Sanitize(),
	)

	var sequence int64
	if err := tx.QueryRow(ctx, q, msg.Topic, msg.Payload, msg.EventID).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("outbox enqueue: %w", err)
	}

	p.m.enqueueTotal.WithLabelValues(TableLabel(p.table), msg.Topic).Inc()
	return sequence, nil
}

// NewMessage marshals payload into a Message with a fresh event id unless
// eventID is set.
func NewMessage(topic string, eventID uuid.UUID, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("outbox marshal %s: %w", topic, err)
	}
	if isZeroUUID(eventID) {
		eventID = uuid.New()
	}
	return Message{Topic: topic, EventID: eventID, Payload: raw}, nil
}
