package links

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IgorGrieder/atalho/internal/infrastructure/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	clicksRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicks_recorded_total",
		Help: "Click events written to the click store",
	})
	clicksDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicks_dropped_total",
		Help: "Click events dropped because the recorder queue was full",
	})
	clickWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "click_write_failures_total",
		Help: "Click events lost to a failed store write",
	})
)

// ClickWriter is the recorder's sink: the mongo click repository by default,
// or a kafka publisher when the click pipeline is externalized.
type ClickWriter interface {
	Append(ctx context.Context, click *Click) error
}

type RecorderOptions struct {
	QueueSize    int
	Workers      int
	WriteTimeout time.Duration
}

// Recorder appends clicks off the request path. Record never blocks and
// never returns an error: a full queue drops the event, a failed write is
// logged and forgotten. Delivery is at-most-once; clicks still queued when
// the process dies are lost.
type Recorder struct {
	writer       ClickWriter
	queue        chan Click
	writeTimeout time.Duration
	now          func() time.Time

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}

	dropped atomic.Int64
}

func NewRecorder(writer ClickWriter, opts RecorderOptions) *Recorder {
	const (
		defaultQueueSize    = 4096
		defaultWorkers      = 2
		defaultWriteTimeout = 2 * time.Second
	)

	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}

	r := &Recorder{
		writer:       writer,
		queue:        make(chan Click, opts.QueueSize),
		writeTimeout: opts.WriteTimeout,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}

	r.wg.Add(opts.Workers)
	for range opts.Workers {
		go r.loop()
	}

	return r
}

// Record enqueues a click for the link. Safe to call after the redirect
// response has been written; the caller never waits on the write.
func (r *Recorder) Record(linkID, ipAddress, userAgent string) {
	if linkID == "" {
		return
	}

	click := Click{
		LinkID:    linkID,
		Timestamp: r.now().UTC(),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	select {
	case r.queue <- click:
	default:
		r.dropped.Add(1)
		clicksDroppedTotal.Inc()
		logger.Warn("click dropped, recorder queue full", zap.String("link_id", linkID))
	}
}

// Dropped reports how many clicks were discarded on a full queue.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Shutdown stops the workers after draining whatever is already queued,
// bounded by ctx.
func (r *Recorder) Shutdown(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stopCh) })

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) loop() {
	defer r.wg.Done()

	for {
		select {
		case click := <-r.queue:
			r.write(click)
		case <-r.stopCh:
			for {
				select {
				case click := <-r.queue:
					r.write(click)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(click Click) {
	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()

	if err := r.writer.Append(ctx, &click); err != nil {
		clickWriteFailuresTotal.Inc()
		logger.Warn("failed to record click", zap.Error(err), zap.String("link_id", click.LinkID))
		return
	}

	clicksRecordedTotal.Inc()
}
