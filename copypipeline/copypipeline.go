// Package copypipeline optionally overlaps the two halves of a stream
// operation — reading sectors from VDDK and framing them onto the wire —
// across two goroutines connected by a bounded, ordered queue, instead of
// doing both on the caller's goroutine.
package copypipeline

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Job is one (offset, data) unit of work handed from the producer to the
// consumer. Offset is in bytes from the start of the disk.
type Job struct {
	Offset uint64
	Data   []byte
}

// ConsumeFunc drains one Job, e.g. writing its bytes to the stream after a
// DataChunk header the producer has already written. A non-nil error aborts
// the pipeline.
type ConsumeFunc func(Job) error

// Pipeline is a single-producer/single-consumer job queue with a bounded
// channel and a flush barrier. Submit calls are FIFO; Flush blocks the
// caller until every job submitted before it has been consumed, so
// sequential framing on the stream is preserved across CBT segment
// boundaries even though I/O is happening on another goroutine.
type Pipeline struct {
	jobs    chan queueItem
	g       *errgroup.Group
	ctx     context.Context
	started bool
}

type queueItem struct {
	job     Job
	barrier chan struct{}
}

// New starts the consumer goroutine, which calls consume for every Job
// submitted until Cleanup is called or consume returns an error.
func New(ctx context.Context, queueDepth int, consume ConsumeFunc) *Pipeline {
	if queueDepth < 1 {
		queueDepth = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	p := &Pipeline{
		jobs:    make(chan queueItem, queueDepth),
		g:       g,
		ctx:     gctx,
		started: true,
	}
	g.Go(func() error {
		for {
			select {
			case item, ok := <-p.jobs:
				if !ok {
					return nil
				}
				if item.barrier != nil {
					close(item.barrier)
					continue
				}
				if err := consume(item.job); err != nil {
					return fmt.Errorf("copypipeline: consume: %w", err)
				}
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	return p
}

// Submit enqueues a job for the consumer. It blocks if the queue is full,
// and returns immediately with the pipeline's failure if the consumer has
// already exited with an error.
func (p *Pipeline) Submit(j Job) error {
	select {
	case p.jobs <- queueItem{job: j}:
		return nil
	case <-p.ctx.Done():
		return p.err()
	}
}

// Flush blocks until every job submitted before this call has been
// consumed. It does not stop the pipeline; more jobs may be submitted
// afterward.
func (p *Pipeline) Flush() error {
	barrier := make(chan struct{})
	select {
	case p.jobs <- queueItem{barrier: barrier}:
	case <-p.ctx.Done():
		return p.err()
	}
	select {
	case <-barrier:
		return nil
	case <-p.ctx.Done():
		return p.err()
	}
}

// Cleanup drains the queue, stops the consumer, and joins it, returning
// the first error encountered by the consumer (if any). Safe to call once;
// callers must not Submit or Flush afterward.
func (p *Pipeline) Cleanup() error {
	if !p.started {
		return nil
	}
	p.started = false
	close(p.jobs)
	err := p.g.Wait()
	if err != nil {
		log.WithError(err).Error("copy pipeline consumer exited with error")
	}
	return err
}

func (p *Pipeline) err() error {
	if err := p.g.Wait(); err != nil {
		return err
	}
	return p.ctx.Err()
}
