package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/composables"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox"
)

// OutboxTable is where committed recruitment outcomes wait for the relay.
var OutboxTable = pgx.Identifier{"recruitment_outbox"}

// OutboxWriter enqueues messages on the transaction carried by ctx, so a
// message exists exactly when the business write it describes commits.
type OutboxWriter struct {
	publisher outbox.Publisher
}

func NewOutboxWriter() (*OutboxWriter, error) {
	p, err := outbox.NewPublisher(OutboxTable)
	if err != nil {
		return nil, err
	}
	return &OutboxWriter{publisher: p}, nil
}

func (w *OutboxWriter) Enqueue(ctx context.Context, topic string, eventID uuid.UUID, payload any) error {
	msg, err := outbox.NewMessage(topic, eventID, payload)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	_, err = w.publisher.Enqueue(ctx, tx, msg)
	return err
}
