package handlers

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/modules/recruitment/services"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox"
)

const seenCapacity = 4096

var relayedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "recruitment",
	Subsystem: "outbox",
	Name:      "relayed_events_total",
	Help:      "Total number of relayed recruitment events broken down by topic and whether they were duplicates.",
}, []string{"topic", "duplicate"})

// OutboxEventsHandler consumes recruitment messages relayed onto the
// in-process bus. Delivery is at-least-once; redeliveries of a recent
// EventID are dropped.
type OutboxEventsHandler struct {
	logger logrus.FieldLogger

	mu    sync.Mutex
	seen  map[uuid.UUID]struct{}
	order []uuid.UUID
}

func NewOutboxEventsHandler(logger logrus.FieldLogger) *OutboxEventsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OutboxEventsHandler{
		logger: logger,
		seen:   make(map[uuid.UUID]struct{}, seenCapacity),
	}
}

func RegisterOutboxEventHandlers(bus eventbus.EventBus, logger logrus.FieldLogger) *OutboxEventsHandler {
	h := NewOutboxEventsHandler(logger)
	bus.Subscribe(h.OnRelayed)
	return h
}

func (h *OutboxEventsHandler) OnRelayed(meta *outbox.Meta, topic string, payload json.RawMessage) error {
	if meta == nil {
		return nil
	}
	if !h.markSeen(meta.EventID) {
		relayedEvents.WithLabelValues(topic, "true").Inc()
		return nil
	}
	relayedEvents.WithLabelValues(topic, "false").Inc()

	fields := logrus.Fields{
		"topic":    topic,
		"event_id": meta.EventID.String(),
		"sequence": meta.Sequence,
		"attempts": meta.Attempts,
	}
	switch topic {
	case services.TopicEmployeeHired, services.TopicEmployeeTerminated:
		var body struct {
			ID          uint    `json:"id"`
			BadgeNumber *string `json:"badgeNumber"`
			Reactivated bool    `json:"reactivated"`
		}
		if err := json.Unmarshal(payload, &body); err == nil && body.ID != 0 {
			fields["employee_id"] = body.ID
			if body.BadgeNumber != nil {
				fields["badge_number"] = *body.BadgeNumber
			}
			if topic == services.TopicEmployeeHired {
				fields["reactivated"] = body.Reactivated
			}
		}
	case services.TopicApplicantRejected:
		var body services.ApplicantRejectedPayload
		if err := json.Unmarshal(payload, &body); err == nil {
			fields["applicant_id"] = body.ApplicantID
			fields["blacklisted"] = body.Blacklisted
		}
	default:
		h.logger.WithFields(fields).Debug("recruitment: ignoring relayed event with unknown topic")
		return nil
	}
	h.logger.WithFields(fields).Info("recruitment: relayed event")
	return nil
}

// markSeen records id and reports whether it was new. The oldest ids are
// forgotten once seenCapacity is reached.
func (h *OutboxEventsHandler) markSeen(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.seen[id]; ok {
		return false
	}
	if len(h.order) >= seenCapacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.seen, oldest)
	}
	h.seen[id] = struct{}{}
	h.order = append(h.order, id)
	return true
}
