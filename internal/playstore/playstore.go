// Package playstore is the storage facade: the only component callers
// interact with. Every operation commits to the local store first; the
// remote store is best-effort, with failed remote mutations parked on the
// durable sync queue for a later flush.
//
// Consistency model: local-read-preferred, eventually-consistent remote.
// A local copy always shadows the remote copy of the same ID on read until
// LoadAuthoritative refreshes it. Concurrent writers to the same ID are
// last-write-wins at both stores; there is no merge or version-vector
// reconciliation. Documented limitation, not a bug.
package playstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coachcore/playvault/internal/geo"
	"github.com/coachcore/playvault/internal/retry"
	"github.com/coachcore/playvault/internal/store"
	"github.com/coachcore/playvault/internal/syncqueue"
	"github.com/coachcore/playvault/pkg/core"
)

// Reporter receives save/flush statistics. Implementations must be cheap
// and non-blocking; nil disables reporting.
type Reporter interface {
	PlaySaved(play *core.Play, routeLength float64, remoteOK bool)
	FlushCompleted(succeeded, failed int, duration time.Duration)
}

// Dependencies holds the injected collaborators. No package-level
// singletons: construct once at startup, pass the Service to callers,
// substitute fakes in tests.
type Dependencies struct {
	Local  store.Local
	Remote store.Remote // nil disables remote persistence and queuing
	Queue  *syncqueue.Queue

	// Online is the connectivity snapshot, read once at the start of each
	// operation. A mid-operation drop shows up as a remote failure and
	// funnels into the enqueue fallback.
	Online func() bool

	Reporter      Reporter // optional
	Logger        zerolog.Logger
	RemoteTimeout time.Duration // per remote call, 0 = 10s
	Retry         retry.Options // per-item flush retry, zero = defaults
}

// Service orchestrates the local store, remote store, and sync queue.
type Service struct {
	deps      Dependencies
	processor *syncqueue.Processor
	metrics   *metrics
	now       func() time.Time
}

// New validates dependencies and builds the facade.
func New(deps Dependencies) (*Service, error) {
	if deps.Local == nil {
		return nil, errors.New("playstore: local store is required")
	}
	if deps.Remote != nil && deps.Queue == nil {
		return nil, errors.New("playstore: sync queue is required when a remote store is configured")
	}
	if deps.Online == nil {
		deps.Online = func() bool { return false }
	}
	if deps.RemoteTimeout <= 0 {
		deps.RemoteTimeout = 10 * time.Second
	}
	if deps.Retry.MaxAttempts == 0 {
		deps.Retry = retry.DefaultOptions()
	}

	s := &Service{
		deps: deps,
		now:  time.Now,
	}
	if deps.Remote != nil {
		s.processor = syncqueue.NewProcessor(deps.Queue, deps.Remote, deps.Online, deps.Retry, deps.RemoteTimeout, deps.Logger)
	}

	m, err := newMetrics(s)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

// Save persists the play. The local write is the commit point: once it
// succeeds the stamped play is returned even if the remote write fails or
// is skipped offline, in which case the mutation is queued for a later
// flush. Only a local-store or queue failure fails the call.
func (s *Service) Save(ctx context.Context, play *core.Play) (*core.Play, error) {
	if play == nil {
		return nil, errors.New("playstore: nil play")
	}

	s.stamp(play)

	if err := play.Validate(); err != nil {
		// Contract violations are logged, not rejected.
		s.deps.Logger.Warn().Err(err).Str("id", play.ID).Msg("Saving play with contract violations")
	}

	if err := s.deps.Local.Put(play); err != nil {
		return nil, fmt.Errorf("local save of play %s failed: %w", play.ID, err)
	}

	remoteOK := false
	if s.deps.Remote != nil {
		if s.deps.Online() {
			if err := s.remoteSet(ctx, play); err != nil {
				s.deps.Logger.Warn().Err(err).Str("id", play.ID).Msg("Remote save failed, queuing for sync")
				s.metrics.remoteFailures.Add(ctx, 1)
				if err := s.deps.Queue.EnqueueSave(play); err != nil {
					return nil, fmt.Errorf("play %s saved locally but sync enqueue failed: %w", play.ID, err)
				}
			} else {
				remoteOK = true
				// The direct write supersedes any older queued save or
				// delete for this play.
				if err := s.deps.Queue.Remove(play.ID); err != nil {
					s.deps.Logger.Warn().Err(err).Str("id", play.ID).Msg("Failed to drop superseded sync item")
				}
			}
		} else {
			if err := s.deps.Queue.EnqueueSave(play); err != nil {
				return nil, fmt.Errorf("play %s saved locally but sync enqueue failed: %w", play.ID, err)
			}
		}
	}

	s.metrics.saves.Add(ctx, 1)
	if s.deps.Reporter != nil {
		s.deps.Reporter.PlaySaved(play, geo.TotalRouteLength(play), remoteOK)
	}
	return play, nil
}

// stamp assigns missing IDs and advances the bookkeeping fields.
// UpdatedAt never goes backwards, even against a skewed clock.
func (s *Service) stamp(play *core.Play) {
	if play.ID == "" {
		play.ID = uuid.NewString()
	}
	for i := range play.Routes {
		if play.Routes[i].ID == "" {
			play.Routes[i].ID = uuid.NewString()
		}
	}

	now := s.now().UTC()
	if now.Before(play.UpdatedAt) {
		now = play.UpdatedAt
	}
	if play.CreatedAt.IsZero() {
		play.CreatedAt = now
	}
	play.UpdatedAt = now
	play.Version++
}

// Load returns the play by ID: local copy first, then the remote when
// online, writing a remote hit through into the local store. Returns
// store.ErrNotFound when neither store has it.
func (s *Service) Load(ctx context.Context, id string) (*core.Play, error) {
	play, err := s.deps.Local.Get(id)
	if err == nil {
		return play, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("local load of play %s failed: %w", id, err)
	}

	return s.loadRemote(ctx, id)
}

// LoadAuthoritative is the remote-authoritative read mode: when online it
// fetches the remote copy and refreshes the local one, bypassing local
// shadowing. Falls back to the local copy when offline or on remote failure.
func (s *Service) LoadAuthoritative(ctx context.Context, id string) (*core.Play, error) {
	if s.deps.Remote != nil && s.deps.Online() {
		play, err := s.loadRemote(ctx, id)
		if err == nil {
			return play, nil
		}
		if errors.Is(err, store.ErrNotFound) {
			// Authoritative miss: any local copy is a leftover the remote
			// no longer knows about, but deleting it here would turn a
			// transient auth/quota 404 into data loss. Fall through.
			s.deps.Logger.Debug().Str("id", id).Msg("Remote miss on authoritative load, trying local")
		} else {
			s.deps.Logger.Warn().Err(err).Str("id", id).Msg("Authoritative load degraded to local copy")
		}
	}

	play, err := s.deps.Local.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("local load of play %s failed: %w", id, err)
	}
	return play, nil
}

// loadRemote fetches from the remote store and caches the hit locally.
func (s *Service) loadRemote(ctx context.Context, id string) (*core.Play, error) {
	if s.deps.Remote == nil || !s.deps.Online() {
		return nil, store.ErrNotFound
	}

	rctx, cancel := context.WithTimeout(ctx, s.deps.RemoteTimeout)
	defer cancel()

	play, err := s.deps.Remote.Get(rctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrNotFound
		}
		s.metrics.remoteFailures.Add(ctx, 1)
		return nil, fmt.Errorf("%w: %v", store.ErrRemoteUnavailable, err)
	}

	if err := s.deps.Local.Put(play); err != nil {
		return nil, fmt.Errorf("failed to cache play %s locally: %w", id, err)
	}
	return play, nil
}

// List returns plays matching the filter, newest updatedAt first, merging
// local and remote results. The local copy shadows the remote copy of the
// same ID; no ID appears twice. Remote failures degrade to local-only
// results, never an error.
func (s *Service) List(ctx context.Context, f store.Filter) ([]core.Play, error) {
	plays, err := s.deps.Local.List(f)
	if err != nil {
		return nil, fmt.Errorf("local list failed: %w", err)
	}

	if s.deps.Remote != nil && s.deps.Online() {
		rctx, cancel := context.WithTimeout(ctx, s.deps.RemoteTimeout)
		remote, err := s.deps.Remote.Query(rctx, f)
		cancel()
		if err != nil {
			s.metrics.remoteFailures.Add(ctx, 1)
			s.deps.Logger.Warn().Err(err).Msg("Remote query failed, returning local results only")
		} else {
			seen := make(map[string]struct{}, len(plays))
			for _, p := range plays {
				seen[p.ID] = struct{}{}
			}
			for _, p := range remote {
				if _, ok := seen[p.ID]; ok {
					continue
				}
				seen[p.ID] = struct{}{}
				plays = append(plays, p)
			}
		}
	}

	sort.Slice(plays, func(i, j int) bool {
		return plays[i].UpdatedAt.After(plays[j].UpdatedAt)
	})

	if f.Limit > 0 && len(plays) > f.Limit {
		plays = plays[:f.Limit]
	}
	return plays, nil
}

// Delete removes the play: unconditional immediate local delete, then
// best-effort remote delete with the same enqueue fallback as Save.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.deps.Local.Delete(id); err != nil {
		return fmt.Errorf("local delete of play %s failed: %w", id, err)
	}

	if s.deps.Remote != nil {
		if s.deps.Online() {
			if err := s.remoteDelete(ctx, id); err != nil {
				s.deps.Logger.Warn().Err(err).Str("id", id).Msg("Remote delete failed, queuing for sync")
				s.metrics.remoteFailures.Add(ctx, 1)
				if err := s.deps.Queue.EnqueueDelete(id); err != nil {
					return fmt.Errorf("play %s deleted locally but sync enqueue failed: %w", id, err)
				}
			} else if err := s.deps.Queue.Remove(id); err != nil {
				s.deps.Logger.Warn().Err(err).Str("id", id).Msg("Failed to drop superseded sync item")
			}
		} else {
			if err := s.deps.Queue.EnqueueDelete(id); err != nil {
				return fmt.Errorf("play %s deleted locally but sync enqueue failed: %w", id, err)
			}
		}
	}

	s.metrics.deletes.Add(ctx, 1)
	return nil
}

// SyncPending drains the sync queue against the remote store. Call it
// manually or on a reconnect event; concurrent invocations are single-
// flight. Items that fail stay queued with their attempt count; the result
// reports both outcomes.
func (s *Service) SyncPending(ctx context.Context) (syncqueue.FlushResult, error) {
	if s.processor == nil {
		return syncqueue.FlushResult{}, nil
	}

	start := s.now()
	result, err := s.processor.Flush(ctx)
	if err != nil {
		return result, err
	}

	s.metrics.synced.Add(ctx, int64(len(result.Succeeded)))
	if s.deps.Reporter != nil && (len(result.Succeeded) > 0 || len(result.Failed) > 0) {
		s.deps.Reporter.FlushCompleted(len(result.Succeeded), len(result.Failed), s.now().Sub(start))
	}
	return result, nil
}

// PendingCount returns the number of queued mutations awaiting sync.
func (s *Service) PendingCount() int {
	if s.deps.Queue == nil {
		return 0
	}
	return s.deps.Queue.Len()
}

func (s *Service) remoteSet(ctx context.Context, play *core.Play) error {
	rctx, cancel := context.WithTimeout(ctx, s.deps.RemoteTimeout)
	defer cancel()
	return s.deps.Remote.Set(rctx, play)
}

func (s *Service) remoteDelete(ctx context.Context, id string) error {
	rctx, cancel := context.WithTimeout(ctx, s.deps.RemoteTimeout)
	defer cancel()
	return s.deps.Remote.Delete(rctx, id)
}
