package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"bankcards/internal/models"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull        = errors.New("event queue is full")
	ErrDispatcherClosed = errors.New("event dispatcher is closed")
)

// Event outcomes reported to metrics.
const (
	ResultPublished = "published"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
	ResultDropped   = "dropped"
)

// MetricsCollector records event delivery outcomes.
type MetricsCollector interface {
	RecordEvent(result string)
}

type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordEvent(string) {}

// DispatcherConfig controls queueing and retry behaviour.
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	PublishTimeout time.Duration
}

// Dispatcher is the outbound queue between committed transfers and the
// event bus. Enqueue never blocks; workers publish with retry.
type Dispatcher struct {
	publisher Publisher
	config    DispatcherConfig
	logger    *logrus.Logger
	metrics   MetricsCollector

	queue  chan models.TransferEvent
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(publisher Publisher, config DispatcherConfig, logger *logrus.Logger, metrics MetricsCollector) *Dispatcher {
	if publisher == nil {
		panic("publisher is required")
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 1024
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 5 * time.Second
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &Dispatcher{
		publisher: publisher,
		config:    config,
		logger:    logger,
		metrics:   metrics,
		queue:     make(chan models.TransferEvent, config.QueueSize),
		stop:      make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (d *Dispatcher) Start() {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Enqueue hands an event to the workers without waiting.
func (d *Dispatcher) Enqueue(event models.TransferEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.RecordEvent(ResultDropped)
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- event:
		return nil
	default:
		d.metrics.RecordEvent(ResultDropped)
		return ErrQueueFull
	}
}

// Stop stops accepting events and waits for queued ones to drain. When ctx
// expires first, pending retries are abandoned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		close(d.stop)
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event models.TransferEvent) {
	log := d.logger.WithField("transfer_id", event.TransferID)
	backoff := d.config.BaseBackoff

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.config.PublishTimeout)
		err := d.publisher.Publish(ctx, event)
		cancel()

		if err == nil {
			d.metrics.RecordEvent(ResultPublished)
			return
		}

		log = log.WithError(err).WithField("attempt", attempt)
		if attempt == d.config.MaxAttempts {
			break
		}
		log.Warn("event publish failed, retrying")
		d.metrics.RecordEvent(ResultRetried)

		select {
		case <-time.After(backoff):
		case <-d.stop:
			log.Error("dispatcher stopped before event was published")
			d.metrics.RecordEvent(ResultFailed)
			return
		}
		backoff *= 2
		if backoff > d.config.MaxBackoff {
			backoff = d.config.MaxBackoff
		}
	}

	log.Error("event publish failed, giving up")
	d.metrics.RecordEvent(ResultFailed)
}
