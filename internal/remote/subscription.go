package remote

import (
	"context"
	"log/slog"
	"sync"

	"github.com/starford/noteflow/internal/sse"
)

// Subscription is a live stream of snapshots. The first value is the state
// at subscribe time; each later value follows a change. C is closed once the
// subscription ends.
type Subscription[T any] struct {
	C <-chan T

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Unsubscribe ends the subscription. After it returns no further values are
// delivered. Calling it more than once is harmless.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Done is closed when the subscription has ended for any reason.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// subscribe pumps snapshots produced by load into a Subscription, reloading
// whenever an event arrives on topic. Events that pile up while a snapshot is
// pending are coalesced into a single reload.
func subscribe[T any](ctx context.Context, broker *sse.Broker, topic string, logger *slog.Logger, load func(context.Context) (T, error)) (*Subscription[T], error) {
	// Subscribe before the first load so no change between the two is lost.
	events := broker.Subscribe(topic)
	snap, err := load(ctx)
	if err != nil {
		broker.Unsubscribe(events)
		return nil, err
	}

	out := make(chan T)
	sub := &Subscription[T]{
		C:    out,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer close(out)
		defer broker.Unsubscribe(events)

		pending := true
		for {
			var send chan<- T
			if pending {
				send = out
			}
			select {
			case <-sub.stop:
				return
			case <-ctx.Done():
				return
			case send <- snap:
				pending = false
			case _, ok := <-events:
				if !ok {
					return
				}
				drain(events)
				next, err := load(ctx)
				if err != nil {
					logger.Warn("subscription reload failed",
						slog.String("topic", topic),
						slog.String("error", err.Error()))
					continue
				}
				snap = next
				pending = true
			}
		}
	}()

	return sub, nil
}

func drain(ch chan sse.Event) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
