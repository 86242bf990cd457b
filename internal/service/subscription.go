package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/homefix-api/internal/observability"
	"github.com/noah-isme/homefix-api/internal/realtime"
)

const subscriptionSignalBuffer = 64

// liveQuery re-runs load whenever one of keys changes. The initial load runs
// before subscribe returns; later loads run serially on one goroutine, in the
// order the change signals arrived.
type liveQuery struct {
	hub    realtime.Hub
	keys   []string
	kind   string
	load   func(ctx context.Context) error
	logger zerolog.Logger
}

func (q liveQuery) subscribe(ctx context.Context) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	signals := make(chan struct{}, subscriptionSignalBuffer)

	unsubscribers := make([]func(), 0, len(q.keys))
	for _, key := range q.keys {
		unsubscribers = append(unsubscribers, q.hub.Subscribe(key, func(realtime.Event) {
			select {
			case signals <- struct{}{}:
			default:
				// Queued signals already trigger a full reload.
				q.logger.Debug().Str("kind", q.kind).Msg("subscription signal buffer full")
			}
		}))
	}

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			for _, unsubscribe := range unsubscribers {
				unsubscribe()
			}
			observability.SubscriptionsActive().WithLabelValues(q.kind).Dec()
		})
	}

	observability.SubscriptionsActive().WithLabelValues(q.kind).Inc()

	if err := q.load(subCtx); err != nil {
		stop()
		return nil, err
	}

	go func() {
		defer stop()
		for {
			select {
			case <-subCtx.Done():
				return
			case <-signals:
				if subCtx.Err() != nil {
					return
				}
				if err := q.load(subCtx); err != nil {
					if subCtx.Err() != nil {
						return
					}
					q.logger.Warn().Err(err).Str("kind", q.kind).Msg("failed to refresh subscription")
				}
			}
		}
	}()

	return stop, nil
}
