package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultTaskTimeout = 15 * time.Second
)

// ErrDispatcherClosed is returned when notices arrive after Shutdown.
var ErrDispatcherClosed = errors.New("notification dispatcher closed")

type deliverer interface {
	Deliver(ctx context.Context, notice Notice) error
}

type task struct {
	ctx    context.Context
	notice Notice
}

// Dispatcher runs notices on a bounded background queue. Callers never wait on
// delivery and delivery failures are only logged.
type Dispatcher struct {
	deliverer deliverer
	logg      *logger.Logger
	timeout   time.Duration

	queue chan task
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the worker pool.
func NewDispatcher(d deliverer, cfg config.NotificationsConfig, logg *logger.Logger) (*Dispatcher, error) {
	if d == nil {
		return nil, errors.New("deliverer required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := cfg.TaskTimeout
	if timeout <= 0 {
		timeout = defaultTaskTimeout
	}

	disp := &Dispatcher{
		deliverer: d,
		logg:      logg,
		timeout:   timeout,
		queue:     make(chan task, size),
	}
	for i := 0; i < workers; i++ {
		disp.wg.Add(1)
		go disp.work()
	}
	return disp, nil
}

// Dispatch enqueues notices without blocking. The request context is detached
// so delivery outlives the triggering request but keeps its log fields.
func (d *Dispatcher) Dispatch(ctx context.Context, notices ...Notice) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	detached := context.WithoutCancel(ctx)
	for _, notice := range notices {
		if d.closed {
			d.logg.Warn(d.noticeCtx(detached, notice), ErrDispatcherClosed.Error())
			continue
		}
		select {
		case d.queue <- task{ctx: detached, notice: notice}:
		default:
			d.logg.Warn(d.noticeCtx(detached, notice), "notification queue full; dropping notice")
		}
	}
}

// Shutdown stops accepting notices and waits for queued ones to drain or for
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
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
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(t.ctx, d.timeout)
	defer cancel()
	logCtx := d.noticeCtx(ctx, t.notice)
	defer func() {
		if r := recover(); r != nil {
			d.logg.Error(logCtx, "notification delivery panicked", errors.New("panic during delivery"))
		}
	}()
	if err := d.deliverer.Deliver(ctx, t.notice); err != nil {
		d.logg.Warn(logCtx, "notification delivery failed: "+err.Error())
		return
	}
	d.logg.Debug(logCtx, "notification delivered")
}

func (d *Dispatcher) noticeCtx(ctx context.Context, notice Notice) context.Context {
	return d.logg.WithFields(ctx, map[string]any{
		"notify_user_id":    notice.UserID.String(),
		"notification_type": string(notice.Type),
	})
}
