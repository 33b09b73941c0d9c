package core

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Skryldev/image-util/config"
	apperrors "github.com/Skryldev/image-util/errors"
)

// Processor runs session work on a bounded worker pool.  The sessions
// themselves are synchronous; Processor is the task + channel layer the
// async helpers are built on.  It is safe for concurrent use.
type Processor struct {
	cfg      config.Config
	registry Registry

	// mu guards logger and stopped.  Submit enqueues under the read lock,
	// so once Stop has set stopped nothing new reaches jobQueue.
	mu      sync.RWMutex
	logger  Logger
	stopped bool

	// Worker pool.
	jobQueue chan Job
	wg       sync.WaitGroup
	start    sync.Once
	stop     sync.Once
	shutdown chan struct{}

	// Atomic counters for lightweight internal metrics.
	processedCount int64
	errorCount     int64
}

// New creates a Processor with the given config.  Call Start() before
// submitting jobs; call Stop() when done.
func New(cfg config.Config, reg Registry) *Processor {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Processor{
		cfg:      cfg,
		registry: reg,
		logger:   NopLogger{},
		jobQueue: make(chan Job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.  It may be called while workers
// are running.
func (p *Processor) SetLogger(l Logger) {
	if l == nil {
		l = NopLogger{}
	}
	p.mu.Lock()
	p.logger = l
	p.mu.Unlock()
}

// Logger returns the attached logger.
func (p *Processor) Logger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// Config returns the configuration the processor was built with.
func (p *Processor) Config() config.Config { return p.cfg }

// Registry returns the underlying registry so callers can register
// encoders/decoders after construction.
func (p *Processor) Registry() Registry { return p.registry }

// Start launches the worker pool.  It is idempotent.
func (p *Processor) Start() {
	p.start.Do(func() {
		workerCount := p.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop shuts down all workers after their current job.  Jobs still queued
// are answered with InvalidOperation so no caller waits forever.
func (p *Processor) Stop() {
	p.stop.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.shutdown)
		p.mu.Unlock()
		p.wg.Wait()
		for {
			select {
			case job := <-p.jobQueue:
				p.reply(job, JobOutput{}, apperrors.Newf(apperrors.KindInvalidOperation, "processor.stop", "processor stopped"))
			default:
				return
			}
		}
	})
}

// Submit enqueues an async job.  An empty job ID is filled with a fresh
// UUID, which is returned.
func (p *Processor) Submit(job Job) (string, error) {
	if job.Run == nil {
		return "", apperrors.Newf(apperrors.KindInvalidParameter, "processor.submit", "job has no Run func")
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Ctx == nil {
		job.Ctx = context.Background()
	}
	job.queued = time.Now()
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return "", apperrors.Newf(apperrors.KindInvalidOperation, "processor.submit", "processor stopped")
	}
	select {
	case p.jobQueue <- job:
		return job.ID, nil
	default:
		return "", apperrors.Newf(apperrors.KindInvalidOperation, "processor.submit", "worker pool queue full")
	}
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job := <-p.jobQueue:
			p.processJob(job)
		}
	}
}

// processJob runs one job.  JobTimeout bounds only the time spent queued;
// a job that has started always runs to completion.
func (p *Processor) processJob(job Job) {
	log := p.Logger()
	if timeout := p.cfg.JobTimeout; timeout > 0 {
		if waited := time.Since(job.queued); waited > timeout {
			atomic.AddInt64(&p.errorCount, 1)
			log.Warn("job.expired", "job", job.ID, "waited_ms", waited.Milliseconds())
			p.reply(job, JobOutput{}, apperrors.Newf(apperrors.KindInvalidOperation, "processor.job",
				"job %s waited %s in queue, limit %s", job.ID, waited, timeout))
			return
		}
	}
	if err := job.Ctx.Err(); err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.reply(job, JobOutput{}, apperrors.Wrap(apperrors.KindInvalidOperation, "processor.job", err))
		return
	}

	log.Debug("job.start", "job", job.ID)
	out, err := job.Run(job.Ctx)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		log.Error("job.failed", "job", job.ID, "error", err.Error())
		out = JobOutput{}
	} else {
		atomic.AddInt64(&p.processedCount, 1)
		log.Debug("job.done", "job", job.ID)
	}
	p.reply(job, out, err)
}

func (p *Processor) reply(job Job, out JobOutput, err error) {
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Output: out, Err: err}
	}
}

// ProcessedCount returns the total number of successful jobs.
func (p *Processor) ProcessedCount() int64 { return atomic.LoadInt64(&p.processedCount) }

// ErrorCount returns the total number of failed jobs.
func (p *Processor) ErrorCount() int64 { return atomic.LoadInt64(&p.errorCount) }
