package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/invoicevision/internal/queue"
	"github.com/local/invoicevision/internal/store"
	"github.com/local/invoicevision/internal/workflow"
)

// Fetcher resolves a job's source reference to document bytes.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// ResultSink persists the final payload outside the status store. Optional.
type ResultSink interface {
	StoreResult(ctx context.Context, jobID string, payload []byte) (string, error)
}

// Pool drains the job queue and runs extractions.
type Pool struct {
	Queue       *queue.RedisQueue
	Status      *store.RedisStatus
	Workflow    *workflow.Workflow
	Fetch       Fetcher    // required for jobs carrying a source_ref
	Sink        ResultSink // nil disables S3 result upload
	Concurrency int
	Poll        time.Duration
}

// Run blocks until ctx is cancelled, processing jobs on Concurrency goroutines.
func (p *Pool) Run(ctx context.Context) {
	n := p.Concurrency
	if n <= 0 {
		n = 4
	}
	poll := p.Poll
	if poll <= 0 {
		poll = 2 * time.Second
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			consumer := fmt.Sprintf("worker-%d", id)
			for {
				if ctx.Err() != nil {
					return
				}
				msgID, payload, err := p.Queue.Dequeue(ctx, consumer, poll)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Error().Err(err).Str("consumer", consumer).Msg("dequeue failed")
					time.Sleep(poll)
					continue
				}
				if payload == nil {
					continue
				}
				p.handle(ctx, consumer, msgID, payload)
			}
		}(i)
	}
	wg.Wait()
}

func (p *Pool) handle(ctx context.Context, consumer, msgID string, payload []byte) {
	// Ack regardless of outcome: failed jobs land in the DLQ, not back on
	// the stream.
	defer func() {
		if err := p.Queue.Ack(context.WithoutCancel(ctx), msgID); err != nil {
			log.Error().Err(err).Str("msg_id", msgID).Msg("ack failed")
		}
	}()

	var job queue.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		log.Error().Err(err).Str("msg_id", msgID).Msg("malformed job payload")
		_ = p.Queue.AddDLQ(ctx, payload, "malformed payload")
		return
	}

	lg := log.With().Str("job_id", job.ID).Str("consumer", consumer).Logger()

	if cancelled, _ := p.Queue.IsCancelled(ctx, job.ID); cancelled {
		lg.Info().Msg("job cancelled before processing")
		p.setStatus(ctx, job.ID, store.StateCancelled, 100, "cancelled")
		return
	}

	start := time.Now()
	p.setStatusStart(ctx, job.ID, start)

	data := job.Data
	if len(data) == 0 && job.SourceRef != "" {
		if p.Fetch == nil {
			p.fail(ctx, job, payload, "no storage configured for source_ref")
			return
		}
		var err error
		data, err = p.Fetch.Fetch(ctx, job.SourceRef)
		if err != nil {
			p.fail(ctx, job, payload, fmt.Sprintf("fetch source: %v", err))
			return
		}
	}
	if len(data) == 0 {
		p.fail(ctx, job, payload, "job has no document data")
		return
	}

	res, err := p.Workflow.Run(ctx, data)
	if err != nil {
		p.fail(ctx, job, payload, err.Error())
		return
	}

	body, err := json.Marshal(res)
	if err != nil {
		p.fail(ctx, job, payload, fmt.Sprintf("marshal result: %v", err))
		return
	}
	if err := p.Status.SetResult(ctx, job.ID, json.RawMessage(body)); err != nil {
		lg.Error().Err(err).Msg("store result failed")
	}
	if p.Sink != nil {
		if ref, err := p.Sink.StoreResult(ctx, job.ID, body); err != nil {
			lg.Warn().Err(err).Msg("result upload failed")
		} else {
			lg.Debug().Str("ref", ref).Msg("result uploaded")
		}
	}

	p.setStatus(ctx, job.ID, store.StateDone, 100, "completed")
	lg.Info().Dur("duration", time.Since(start)).Int("pages", res.Pages).Msg("job done")
}

func (p *Pool) fail(ctx context.Context, job queue.Job, payload []byte, reason string) {
	log.Error().Str("job_id", job.ID).Str("reason", reason).Msg("job failed")
	if err := p.Queue.AddDLQ(ctx, payload, reason); err != nil {
		log.Error().Err(err).Str("job_id", job.ID).Msg("dlq push failed")
	}
	p.setStatus(ctx, job.ID, store.StateFailed, 100, reason)
}

func (p *Pool) setStatusStart(ctx context.Context, jobID string, start time.Time) {
	if err := p.Status.Set(ctx, jobID, store.Status{
		Status:   store.StateProcessing,
		Progress: 10,
		Message:  "processing",
		Start:    &start,
	}); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("status update failed")
	}
}

func (p *Pool) setStatus(ctx context.Context, jobID, state string, progress int, msg string) {
	now := time.Now()
	if err := p.Status.Set(ctx, jobID, store.Status{
		Status:   state,
		Progress: progress,
		Message:  msg,
		End:      &now,
	}); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("status update failed")
	}
}
