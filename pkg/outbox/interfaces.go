package outbox

import "context"

// Dispatcher delivers one message. A returned error schedules a retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg DispatchedMessage) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, msg DispatchedMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg DispatchedMessage) error {
	return f(ctx, msg)
}

// Fanout dispatches to every dispatcher in order and stops at the first error.
type Fanout []Dispatcher

func (f Fanout) Dispatch(ctx context.Context, msg DispatchedMessage) error {
	for _, d := range f {
		if err := d.Dispatch(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}
