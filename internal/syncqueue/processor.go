// internal/syncqueue/processor.go
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/coachcore/playvault/internal/retry"
	"github.com/coachcore/playvault/internal/store"
)

// ErrFlushInProgress is returned when a flush is already running. Flushes
// are single-flight; a reconnect handler hitting this can simply skip.
var ErrFlushInProgress = errors.New("sync flush already in progress")

// FlushFailure describes one item that could not be applied this pass.
type FlushFailure struct {
	ItemID   string
	PlayID   string
	Op       Op
	Attempts int
	Err      string
}

// FlushResult reports what a flush pass did. Failed items remain queued.
type FlushResult struct {
	Succeeded []string // play IDs applied to the remote store
	Failed    []FlushFailure
}

// Processor drains the queue against the remote store.
type Processor struct {
	queue   *Queue
	remote  store.Remote
	online  func() bool
	opts    retry.Options
	timeout time.Duration
	log     zerolog.Logger

	flushMu sync.Mutex
}

// NewProcessor creates a flush processor. online is the connectivity
// snapshot read at the start of each flush; timeout bounds each remote
// attempt (0 = 10s).
func NewProcessor(queue *Queue, remote store.Remote, online func() bool, opts retry.Options, timeout time.Duration, log zerolog.Logger) *Processor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Processor{
		queue:   queue,
		remote:  remote,
		online:  online,
		opts:    opts,
		timeout: timeout,
		log:     log,
	}
}

// Flush applies queued items to the remote store in enqueue order. Each item
// gets a bounded retry with backoff; success removes exactly that item,
// failure bumps its attempt counter and leaves it queued. A per-item failure
// never halts the rest of the pass. Offline is a successful no-op.
//
// Only one flush runs at a time; a concurrent call gets ErrFlushInProgress.
// Items enqueued while a flush runs are picked up by the next pass.
func (p *Processor) Flush(ctx context.Context) (FlushResult, error) {
	var result FlushResult

	if !p.online() {
		p.log.Debug().Msg("Skipping sync flush, offline")
		return result, nil
	}

	if !p.flushMu.TryLock() {
		return result, ErrFlushInProgress
	}
	defer p.flushMu.Unlock()

	items := p.queue.Items()
	if len(items) == 0 {
		return result, nil
	}
	p.log.Info().Int("pending", len(items)).Msg("Flushing sync queue")

	for _, item := range items {
		err := retry.Do(ctx, func() error {
			return p.apply(ctx, item)
		}, p.opts)

		if err != nil {
			if ackErr := p.queue.MarkFailed(item.ID); ackErr != nil {
				p.log.Error().Err(ackErr).Str("playId", item.PlayID).Msg("Failed to record sync attempt")
			}
			result.Failed = append(result.Failed, FlushFailure{
				ItemID:   item.ID,
				PlayID:   item.PlayID,
				Op:       item.Op,
				Attempts: item.Attempts + 1,
				Err:      err.Error(),
			})
			p.log.Warn().Err(err).Str("playId", item.PlayID).Str("op", string(item.Op)).Msg("Sync item failed, keeping queued")

			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}

		if err := p.queue.Ack(item.ID); err != nil {
			// The remote write landed but the journal still lists the item;
			// the next flush re-applies it, which the upsert/delete remote
			// operations tolerate.
			p.log.Error().Err(err).Str("playId", item.PlayID).Msg("Failed to ack synced item")
		}
		result.Succeeded = append(result.Succeeded, item.PlayID)
	}

	p.log.Info().Int("succeeded", len(result.Succeeded)).Int("failed", len(result.Failed)).Msg("Sync flush complete")
	return result, nil
}

func (p *Processor) apply(ctx context.Context, item Item) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	switch item.Op {
	case OpSave:
		if item.Play == nil {
			return fmt.Errorf("queued save for %s has no payload", item.PlayID)
		}
		return p.remote.Set(ctx, item.Play)
	case OpDelete:
		return p.remote.Delete(ctx, item.PlayID)
	default:
		return fmt.Errorf("unknown sync op %q", item.Op)
	}
}
