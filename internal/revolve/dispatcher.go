package revolve

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/orderbridge/pkg/errors"
	"github.com/angelmondragon/orderbridge/pkg/logger"
	"github.com/angelmondragon/orderbridge/pkg/pubsub"
)

var (
	// ErrQueueFull is returned when the inline queue cannot take another job.
	ErrQueueFull = errors.New("sync queue is full")
	// ErrDispatcherClosed is returned after Close.
	ErrDispatcherClosed = errors.New("sync dispatcher closed")
)

// Dispatcher hands sync jobs off the request path.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// InlineDispatcher runs jobs on a bounded in-process worker pool.
type InlineDispatcher struct {
	handler JobHandler
	jobs    chan Job
	workers int
	logg    *logger.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	group   errgroup.Group
}

// NewInlineDispatcher builds the pool. Start must be called before jobs run.
func NewInlineDispatcher(handler JobHandler, workers, queueSize int, logg *logger.Logger) (*InlineDispatcher, error) {
	if handler == nil {
		return nil, errors.New("sync handler required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &InlineDispatcher{
		handler: handler,
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logg:    logg,
	}, nil
}

// Start launches the workers. Jobs run on a context detached from ctx's
// cancellation so Close can drain the queue during shutdown.
func (d *InlineDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	jobCtx := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.group.Go(func() error {
			for job := range d.jobs {
				// handler logs and records its own failures
				_ = d.handler.Handle(jobCtx, job)
			}
			return nil
		})
	}
	d.logg.Info(d.logg.WithField(ctx, "workers", d.workers), "inline sync workers started")
}

// Dispatch enqueues without blocking.
func (d *InlineDispatcher) Dispatch(ctx context.Context, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, ErrDispatcherClosed, "dispatch sync job")
	}
	select {
	case d.jobs <- job:
		return nil
	default:
		d.logg.Warn(d.logg.WithFields(ctx, job.logFields()), "sync queue full, dropping job")
		return pkgerrors.Wrap(pkgerrors.CodeRateLimit, ErrQueueFull, "dispatch sync job")
	}
}

// Close stops intake and waits for queued jobs to finish.
func (d *InlineDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	return d.group.Wait()
}

// PubSubDispatcher publishes jobs to the sync topic for cmd/sync-worker.
type PubSubDispatcher struct {
	publisher pubsub.Publisher
	logg      *logger.Logger
}

// NewPubSubDispatcher wraps a topic publisher.
func NewPubSubDispatcher(publisher pubsub.Publisher, logg *logger.Logger) (*PubSubDispatcher, error) {
	if publisher == nil {
		return nil, errors.New("sync publisher required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &PubSubDispatcher{publisher: publisher, logg: logg}, nil
}

// Dispatch publishes the job and waits for the server ack.
func (d *PubSubDispatcher) Dispatch(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal sync job")
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_id":    job.ID,
			"sync_kind": job.Kind.String(),
			"shop":      job.Shop,
		},
	}
	messageID, err := d.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "publish sync job")
	}
	d.logg.Info(d.logg.WithFields(ctx, map[string]any{
		"job_id":     job.ID,
		"message_id": messageID,
	}), "sync job published")
	return nil
}
