package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rmaganhoto/coursereg/internal/broker"
)

type publishJob struct {
	routingKey string
	body       []byte
}

// eventPublisher is what the handlers see; the background implementation is
// swapped for a recorder in tests.
type eventPublisher interface {
	Enqueue(routingKey string, body []byte) bool
}

// backgroundPublisher decouples "answer the caller" from "publish the event".
// Jobs go through a buffered channel to a single worker goroutine; a publish
// failure is logged and dropped, never surfaced to the already-answered
// caller. The registration then stays pending until someone republishes by
// hand.
type backgroundPublisher struct {
	jobs   chan publishJob
	broker broker.Publisher
	logger *slog.Logger
	wg     sync.WaitGroup
}

func newBackgroundPublisher(b broker.Publisher, logger *slog.Logger, buffer int) *backgroundPublisher {
	return &backgroundPublisher{
		jobs:   make(chan publishJob, buffer),
		broker: b,
		logger: logger,
	}
}

// Start launches the publish worker. One goroutine, so events leave in the
// order they were enqueued.
func (p *backgroundPublisher) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for job := range p.jobs {
			err := p.broker.Publish(ctx, broker.RegistrationsExchangeName, job.routingKey, job.body)
			if err != nil {
				p.logger.Error("Error publishing event", "error", err, "routing_key", job.routingKey)
				continue
			}
			p.logger.Info("Event published", "routing_key", job.routingKey)
		}
	}()
}

// Enqueue hands an event to the publish worker without blocking the request.
// A full queue drops the event, which is the same accepted gap as a failed
// publish.
func (p *backgroundPublisher) Enqueue(routingKey string, body []byte) bool {
	select {
	case p.jobs <- publishJob{routingKey: routingKey, body: body}:
		return true
	default:
		p.logger.Error("Publish queue full, dropping event", "routing_key", routingKey)
		return false
	}
}

// Stop drains queued jobs and waits for the worker to exit. Call after the
// HTTP server has stopped accepting requests.
func (p *backgroundPublisher) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
