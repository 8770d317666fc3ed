package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/civic-complaints/internal/core/events"
)

type Config struct {
	MaxWorkers int
	QueueSize  int
	Timeout    time.Duration
}

type worker struct {
	id         int
	workerPool chan chan Notification
	jobChannel chan Notification
	logger     *slog.Logger
}

func newWorker(id int, workerPool chan chan Notification, logger *slog.Logger) *worker {
	return &worker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan Notification),
		logger:     logger,
	}
}

func (w *worker) start(ctx context.Context, wg *sync.WaitGroup, process func(Notification)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.workerPool <- w.jobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case n := <-w.jobChannel:
				w.logger.Debug("worker delivering notification", "worker_id", w.id, "event_id", n.ID)
				process(n)
			case <-ctx.Done():
				w.logger.Debug("worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

// Dispatcher fans lifecycle events out to every sink on a fixed pool of workers. Enqueueing
// never blocks; a full queue drops the notification.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger

	queue      chan Notification
	workerPool chan chan Notification
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewDispatcher(cfg Config, sinks []Sink, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	d := &Dispatcher{
		sinks:      sinks,
		timeout:    timeout,
		logger:     logger,
		queue:      make(chan Notification, queueSize),
		workerPool: make(chan chan Notification, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			newWorker(i, d.workerPool, d.logger).start(d.ctx, &d.wg, d.deliver)
		}

		d.wg.Add(1)
		go d.dispatch()

		names := make([]string, len(d.sinks))
		for i, s := range d.sinks {
			names[i] = s.Name()
		}
		d.logger.Info("notification dispatcher started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.queue),
			"sinks", names)
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.queue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- n:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down", "dropped", len(d.queue))
			return
		}
	}
}

func (d *Dispatcher) deliver(n Notification) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		err := sink.Send(ctx, n)
		cancel()
		if err != nil {
			d.logger.Error("notification delivery failed",
				"sink", sink.Name(),
				"event_type", n.Type,
				"event_id", n.ID,
				"error", err)
			continue
		}
		d.logger.Debug("notification delivered", "sink", sink.Name(), "event_id", n.ID)
	}
}

// Enqueue reports whether the notification was accepted.
func (d *Dispatcher) Enqueue(n Notification) bool {
	if d.ctx.Err() != nil {
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		d.logger.Warn("notification queue full, dropping event",
			"event_type", n.Type,
			"event_id", n.ID,
			"queue_capacity", cap(d.queue))
		return false
	}
}

// Handle is an events.Handler.
func (d *Dispatcher) Handle(_ context.Context, e events.Event) error {
	d.Enqueue(FromEvent(e))
	return nil
}

// Subscribe registers the dispatcher for every complaint lifecycle event.
func (d *Dispatcher) Subscribe(bus *events.EventBus) {
	for _, t := range events.ComplaintEventTypes {
		bus.Subscribe(t, d.Handle)
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}
