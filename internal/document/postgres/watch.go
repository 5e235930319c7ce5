package postgres

import (
	"context"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/umbral/internal/document"
	"github.com/julianstephens/umbral/internal/logger"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
)

// Watch subscribes to the documents NOTIFY channel. The trigger publishes
// the mutated collection prefix as the notification payload, so events from
// other clients arrive exactly like local ones.
func (s *Store) Watch(ctx context.Context) (<-chan document.Event, error) {
	listener := pq.NewListener(s.connStr, listenerMinReconnect, listenerMaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				logger.Warn("Postgres listener event", "type", int(ev), "error", err)
			}
		})

	if err := listener.Listen(NotifyChannel); err != nil {
		listener.Close()
		return nil, err
	}

	events := make(chan document.Event, 64)

	go func() {
		defer close(events)
		defer func() {
			if err := listener.Close(); err != nil {
				logger.Warn("Postgres listener close failed", "error", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-listener.Notify:
				if !ok {
					return
				}
				if n == nil {
					// A nil notification signals a reconnect; the caller
					// should reload since changes may have been missed.
					// Send an event with an empty collection to force a
					// full refresh.
					select {
					case events <- document.Event{}:
					default:
					}
					continue
				}
				select {
				case events <- document.Event{Collection: n.Extra}:
				default:
				}
			case <-time.After(90 * time.Second):
				// Periodic liveness check; pings the server and triggers
				// the reconnect path if the connection has gone away.
				go func() {
					if err := listener.Ping(); err != nil {
						logger.Warn("Postgres listener ping failed", "error", err)
					}
				}()
			}
		}
	}()

	return events, nil
}
