package eventbus

import (
	"context"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/eventbus"
	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/outbox"
)

// Dispatcher republishes relayed messages on the in-process bus. Subscribers
// take (meta *outbox.Meta, topic string, payload json.RawMessage) and may
// return an error to have the relay retry.
type Dispatcher struct {
	bus eventbus.EventBusWithError
}

func New(bus eventbus.EventBusWithError) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.DispatchedMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.bus.PublishE(&msg.Meta, msg.Meta.Topic, msg.Payload)
}
