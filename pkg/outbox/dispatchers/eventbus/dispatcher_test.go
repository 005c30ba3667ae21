package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox"
)

func TestDispatcher_DeliversToTypedSubscriber(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())
	var gotTopic string
	var gotPayload json.RawMessage
	bus.Subscribe(func(meta *outbox.Meta, topic string, payload json.RawMessage) error {
		gotTopic = topic
		gotPayload = payload
		return nil
	})

	msg := outbox.DispatchedMessage{
		Meta:    outbox.Meta{Topic: "recruitment.employee.hired.v1", EventID: uuid.New()},
		Payload: json.RawMessage(`{"id":1}`),
	}
	require.NoError(t, New(bus).Dispatch(context.Background(), msg))
	assert.Equal(t, "recruitment.employee.hired.v1", gotTopic)
	assert.JSONEq(t, `{"id":1}`, string(gotPayload))
}

func TestDispatcher_SurfacesHandlerError(t *testing.T) {
	bus := eventbus.NewEventPublisher(logrus.New())
	bus.Subscribe(func(meta *outbox.Meta, topic string, payload json.RawMessage) error {
		return errors.New("redis down")
	})

	err := New(bus).Dispatch(context.Background(), outbox.DispatchedMessage{Meta: outbox.Meta{Topic: "t"}, Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(eventbus.NewEventPublisher(logrus.New())).Dispatch(ctx, outbox.DispatchedMessage{})
	assert.ErrorIs(t, err, context.Canceled)
}
