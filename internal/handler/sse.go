package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const defaultKeepAlive = 30 * time.Second

// snapshotSlot holds the most recent undelivered snapshot. Every snapshot is a
// full view, so a newer one replaces an older one the client has not read yet.
type snapshotSlot struct {
	ch chan interface{}
}

func newSnapshotSlot() *snapshotSlot {
	return &snapshotSlot{ch: make(chan interface{}, 1)}
}

func (s *snapshotSlot) put(value interface{}) {
	for {
		select {
		case s.ch <- value:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// subscribeFunc registers a live view whose snapshots are pushed into emit.
type subscribeFunc func(ctx context.Context, emit func(interface{})) (func(), error)

// streamSnapshots subscribes before switching the response to an event stream
// so that subscription errors still produce a JSON envelope.
func streamSnapshots(c *fiber.Ctx, logger zerolog.Logger, keepAlive time.Duration, event string, subscribe subscribeFunc, onError func(error) error) error {
	ctx, cancel := context.WithCancel(requestContext(c))
	slot := newSnapshotSlot()

	unsubscribe, err := subscribe(ctx, slot.put)
	if err != nil {
		cancel()
		return onError(err)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	streamLogger := *requestLogger(logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			unsubscribe()
			cancel()
		}()

		ticker := time.NewTicker(keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case snapshot := <-slot.ch:
				if err := writeEvent(w, event, snapshot); err != nil {
					streamLogger.Debug().Err(err).Str("event", event).Msg("failed to write stream event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					streamLogger.Debug().Err(err).Str("event", event).Msg("failed to write stream keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
