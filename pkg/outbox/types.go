package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Message is one row of an outbox table.
type Message struct {
	Topic   string
	EventID uuid.UUID
	Payload json.RawMessage
}

// Meta travels with every dispatched message. EventID is stable across
// retries, so consumers dedupe on it.
type Meta struct {
	Table      pgx.Identifier
	Topic      string
	EventID    uuid.UUID
	Sequence   int64
	Attempts   int
	EnqueuedAt time.Time
}

type DispatchedMessage struct {
	Meta    Meta
	Payload json.RawMessage
}
