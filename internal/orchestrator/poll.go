package orchestrator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"imgto3d/internal/api"
	"imgto3d/internal/infra"
)

// PollConfig tunes the status polling loop.
type PollConfig struct {
	// Interval between successful polls.
	Interval time.Duration
	// ErrorInterval is the longer wait applied after a transport or API
	// error before the next attempt.
	ErrorInterval time.Duration
	// MaxErrorRetries bounds consecutive failed polls. Zero retries forever,
	// which matches the availability choice of never silently abandoning a
	// job the caller is waiting on.
	MaxErrorRetries int
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 3 * time.Second
	}
	if c.ErrorInterval <= 0 {
		c.ErrorInterval = 10 * time.Second
	}
	return c
}

// Poller repeatedly fetches a job record until a terminal status is observed.
// One independent Watch exists per job; watches never serialize against each
// other.
type Poller struct {
	client *api.Client
	logger *infra.Logger
	cfg    PollConfig
}

// NewPoller constructs a Poller with defaults applied.
func NewPoller(client *api.Client, logger *infra.Logger, cfg PollConfig) *Poller {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Poller{client: client, logger: logger, cfg: cfg.withDefaults()}
}

// Watch is the handle to one polling loop. Stop halts polling
// deterministically; Done closes once the loop has exited for any reason.
type Watch struct {
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	mu    sync.Mutex
	final *api.JobRecord
	err   error
}

// Stop halts the polling loop. It is safe to call more than once and after
// the loop has already finished. Stopping does not fire the completion
// callback.
func (w *Watch) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Done closes when the loop has exited.
func (w *Watch) Done() <-chan struct{} {
	return w.done
}

// Result returns the terminal record, if one was observed, and the loop
// error, if any. Only meaningful after Done has closed.
func (w *Watch) Result() (*api.JobRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.final, w.err
}

func (w *Watch) finish(rec *api.JobRecord, err error) {
	w.mu.Lock()
	w.final = rec
	w.err = err
	w.mu.Unlock()
}

// Watch starts polling jobID. onObservation fires after every successful
// poll regardless of status; onCompletion fires exactly once, when a
// terminal status is first observed, after which no further request is
// issued for this job. Transport errors are absorbed into delayed retries
// and never reported as job failure.
func (p *Poller) Watch(ctx context.Context, jobID string, onObservation, onCompletion func(*api.JobRecord)) *Watch {
	w := &Watch{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(w.done)

		errCount := 0
		timer := time.NewTimer(0)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				w.finish(nil, ctx.Err())
				return
			case <-w.stop:
				w.finish(nil, nil)
				return
			case <-timer.C:
			}

			rec, err := p.client.GetJob(ctx, jobID)
			if err != nil {
				errCount++
				p.logger.Warn().Err(err).Str("job_id", jobID).Int("attempt", errCount).
					Msg("orchestrator: poll failed, will retry")
				if p.cfg.MaxErrorRetries > 0 && errCount >= p.cfg.MaxErrorRetries {
					w.finish(nil, fmt.Errorf("orchestrator: polling %s gave up after %d consecutive errors: %w",
						jobID, errCount, err))
					return
				}
				timer.Reset(p.cfg.ErrorInterval)
				continue
			}
			errCount = 0

			if onObservation != nil {
				onObservation(rec)
			}
			if rec.Status.Terminal() {
				w.finish(rec, nil)
				if onCompletion != nil {
					onCompletion(rec)
				}
				return
			}
			timer.Reset(p.cfg.Interval)
		}
	}()

	return w
}
