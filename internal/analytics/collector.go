package analytics

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/vectorsearch/pkg/kafka"
)

// Publisher is the write side of a Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers evaluation events and publishes them from a single
// goroutine. Track never blocks; events are dropped when the buffer is full.
type Collector struct {
	publisher Publisher
	eventCh   chan EvaluationEvent
	logger    *slog.Logger
	done      chan struct{}

	published atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan EvaluationEvent, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event for publishing.
func (c *Collector) Track(event EvaluationEvent) {
	select {
	case c.eventCh <- event:
	default:
		c.dropped.Add(1)
		c.logger.Warn("analytics event dropped (buffer full)", "query", event.Query)
	}
}

// Close stops accepting events and waits for the buffer to drain.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// Counts returns how many events were published, dropped, and failed.
func (c *Collector) Counts() (published, dropped, failed int64) {
	return c.published.Load(), c.dropped.Load(), c.failed.Load()
}

func (c *Collector) publish(ctx context.Context, event EvaluationEvent) {
	err := c.publisher.Publish(ctx, kafka.Event{Key: event.JudgmentSet, Value: event})
	if err != nil {
		c.failed.Add(1)
		c.logger.Error("failed to publish analytics event", "error", err)
		return
	}
	c.published.Add(1)
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
