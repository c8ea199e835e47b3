package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/classcast/internal/conference"
)

const writeTimeout = 5 * time.Second

var errQueueFull = conference.NewError("emit audit record", conference.ErrTransient, "queue full")

// Emitter accepts records without blocking the caller.
type Emitter interface {
	Emit(rec Record)
}

// Dispatcher queues records and writes them to a Sink from its own
// goroutine. A full queue drops the record.
type Dispatcher struct {
	sink      Sink
	log       *slog.Logger
	now       func() time.Time
	onFailure func(error)

	mu     sync.Mutex
	closed bool
	queue  chan Record
	done   chan struct{}
}

// NewDispatcher creates a dispatcher with a queue of size records.
// onFailure, if non-nil, is called for every failed or dropped write.
func NewDispatcher(sink Sink, size int, log *slog.Logger, onFailure func(error)) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		sink:      sink,
		log:       log,
		now:       time.Now,
		onFailure: onFailure,
		queue:     make(chan Record, size),
		done:      make(chan struct{}),
	}
}

// Emit stamps the record and queues it.
func (d *Dispatcher) Emit(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = d.now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- rec:
	default:
		d.log.Warn("audit queue full, dropping record", "type", rec.Type, "confId", rec.ConfID)
		d.fail(errQueueFull)
	}
}

// Run writes queued records until Close is called.
func (d *Dispatcher) Run() {
	defer close(d.done)
	for rec := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := d.sink.Write(ctx, rec)
		cancel()
		if err != nil {
			d.log.Warn("audit write failed", "type", rec.Type, "confId", rec.ConfID, "err", err)
			d.fail(err)
		}
	}
}

// Close stops accepting records, waits for Run to drain the queue and
// closes the sink. Run must have been started.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	return d.sink.Close()
}

func (d *Dispatcher) fail(err error) {
	if d.onFailure != nil {
		d.onFailure(err)
	}
}
