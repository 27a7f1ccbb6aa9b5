package playstore

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachcore/playvault/internal/retry"
	"github.com/coachcore/playvault/internal/store"
	"github.com/coachcore/playvault/internal/syncqueue"
	"github.com/coachcore/playvault/pkg/core"
)

type fakeLocal struct {
	mu    sync.Mutex
	plays map[string]core.Play

	putErr error
}

func newFakeLocal() *fakeLocal {
	return &fakeLocal{plays: make(map[string]core.Play)}
}

func (l *fakeLocal) Close() error { return nil }

func (l *fakeLocal) Get(id string) (*core.Play, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	play, ok := l.plays[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &play, nil
}

func (l *fakeLocal) Put(play *core.Play) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.putErr != nil {
		return l.putErr
	}
	l.plays[play.ID] = *play
	return nil
}

func (l *fakeLocal) Delete(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.plays, id)
	return nil
}

func (l *fakeLocal) List(f store.Filter) ([]core.Play, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	plays := make([]core.Play, 0, len(l.plays))
	for _, p := range l.plays {
		plays = append(plays, p)
	}
	return plays, nil
}

type fakeRemote struct {
	mu    sync.Mutex
	plays map[string]core.Play

	failAll bool
	queried []store.Filter
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{plays: make(map[string]core.Play)}
}

func (r *fakeRemote) Set(ctx context.Context, play *core.Play) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("remote down")
	}
	r.plays[play.ID] = *play
	return nil
}

func (r *fakeRemote) Get(ctx context.Context, id string) (*core.Play, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, errors.New("remote down")
	}
	play, ok := r.plays[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &play, nil
}

func (r *fakeRemote) Query(ctx context.Context, f store.Filter) ([]core.Play, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queried = append(r.queried, f)
	if r.failAll {
		return nil, errors.New("remote down")
	}
	plays := make([]core.Play, 0, len(r.plays))
	for _, p := range r.plays {
		plays = append(plays, p)
	}
	return plays, nil
}

func (r *fakeRemote) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("remote down")
	}
	delete(r.plays, id)
	return nil
}

func (r *fakeRemote) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.plays[id]
	return ok
}

type fixture struct {
	service *Service
	local   *fakeLocal
	remote  *fakeRemote
	queue   *syncqueue.Queue
	online  bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		local:  newFakeLocal(),
		remote: newFakeRemote(),
		online: true,
	}
	queue, err := syncqueue.Open(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)
	f.queue = queue

	service, err := New(Dependencies{
		Local:  f.local,
		Remote: f.remote,
		Queue:  queue,
		Online: func() bool { return f.online },
		Logger: zerolog.Nop(),
		Retry:  singleTry(),
	})
	require.NoError(t, err)
	f.service = service
	return f
}

func singleTry() retry.Options {
	return retry.Options{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1}
}

func newPlay(name string) *core.Play {
	return &core.Play{
		Name:      name,
		FieldType: core.Field11v11,
		CoachID:   "coach-1",
		Players:   []core.Player{{ID: "pl1", Team: core.TeamOffense, X: 10, Y: 10}},
		Routes: []core.Route{
			{PlayerID: "pl1", Type: core.RouteRun, Points: []core.RoutePoint{{X: 10, Y: 10}, {X: 20, Y: 10}}},
		},
	}
}

func TestNewRequiresLocal(t *testing.T) {
	_, err := New(Dependencies{})
	assert.Error(t, err)
}

func TestNewRequiresQueueWithRemote(t *testing.T) {
	_, err := New(Dependencies{Local: newFakeLocal(), Remote: newFakeRemote()})
	assert.Error(t, err)
}

func TestSaveOnline(t *testing.T) {
	f := newFixture(t)

	saved, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)

	require.NotEmpty(t, saved.ID)
	assert.NotEmpty(t, saved.Routes[0].ID)
	assert.Equal(t, 1, saved.Version)
	assert.False(t, saved.UpdatedAt.IsZero())
	assert.True(t, saved.CreatedAt.Equal(saved.UpdatedAt))

	// Committed locally, mirrored remotely, nothing queued.
	_, err = f.local.Get(saved.ID)
	assert.NoError(t, err)
	assert.True(t, f.remote.has(saved.ID))
	assert.Equal(t, 0, f.service.PendingCount())
}

func TestSaveOfflineQueues(t *testing.T) {
	f := newFixture(t)
	f.online = false

	saved, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)

	_, err = f.local.Get(saved.ID)
	assert.NoError(t, err)
	assert.False(t, f.remote.has(saved.ID))
	assert.Equal(t, 1, f.service.PendingCount())

	// Back online: the queued save drains to the remote.
	f.online = true
	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{saved.ID}, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.True(t, f.remote.has(saved.ID))
	assert.Equal(t, 0, f.service.PendingCount())
}

func TestSaveRemoteFailureQueues(t *testing.T) {
	f := newFixture(t)
	f.remote.failAll = true

	saved, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)

	// The local commit stands even though the remote write failed.
	_, err = f.local.Get(saved.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, f.service.PendingCount())

	f.remote.failAll = false
	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{saved.ID}, result.Succeeded)
	assert.True(t, f.remote.has(saved.ID))
}

func TestSaveLocalFailureFails(t *testing.T) {
	f := newFixture(t)
	f.local.putErr = errors.New("disk full")

	_, err := f.service.Save(context.Background(), newPlay("Dive"))
	assert.Error(t, err)
	assert.False(t, f.remote.has("Dive"))
	assert.Equal(t, 0, f.service.PendingCount())
}

func TestSaveEnqueueFailureIsLoud(t *testing.T) {
	f := &fixture{local: newFakeLocal(), remote: newFakeRemote(), online: false}
	// A queue whose journal directory does not exist cannot persist.
	queue, err := syncqueue.Open(filepath.Join(t.TempDir(), "missing", "queue.json"))
	require.NoError(t, err)

	service, err := New(Dependencies{
		Local:  f.local,
		Remote: f.remote,
		Queue:  queue,
		Online: func() bool { return false },
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = service.Save(context.Background(), newPlay("Dive"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync enqueue failed")
}

func TestSaveOnlineSupersedesQueuedSave(t *testing.T) {
	f := newFixture(t)
	f.online = false

	first, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)
	require.Equal(t, 1, f.service.PendingCount())

	// Saving a detached copy after reconnecting writes straight to the
	// remote. The stale queued payload is dropped, not replayed over it.
	f.online = true
	updated := first.Clone()
	updated.Notes = "updated while online"
	saved, err := f.service.Save(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, 0, f.service.PendingCount())

	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)

	remote, err := f.remote.Get(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, remote.Version)
	assert.Equal(t, "updated while online", remote.Notes)
}

func TestDeleteOnlineDropsQueuedSave(t *testing.T) {
	f := newFixture(t)
	f.online = false

	saved, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)
	require.Equal(t, 1, f.service.PendingCount())

	f.online = true
	require.NoError(t, f.service.Delete(context.Background(), saved.ID))
	assert.Equal(t, 0, f.service.PendingCount())

	// Nothing left to flush; the play stays deleted remotely.
	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	assert.False(t, f.remote.has(saved.ID))
}

func TestSaveVersionAndUpdatedAtAdvance(t *testing.T) {
	f := newFixture(t)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.service.now = func() time.Time { return base }

	saved, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Version)
	assert.True(t, saved.UpdatedAt.Equal(base))

	// A skewed clock must not move updatedAt backwards.
	f.service.now = func() time.Time { return base.Add(-time.Hour) }
	saved, err = f.service.Save(context.Background(), saved)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.True(t, saved.UpdatedAt.Equal(base))
}

func TestSaveNilPlay(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Save(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoadPrefersLocal(t *testing.T) {
	f := newFixture(t)

	localCopy := core.Play{ID: "p1", Name: "local edit", Version: 2}
	remoteCopy := core.Play{ID: "p1", Name: "stale remote", Version: 1}
	require.NoError(t, f.local.Put(&localCopy))
	require.NoError(t, f.remote.Set(context.Background(), &remoteCopy))

	got, err := f.service.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "local edit", got.Name)
}

func TestLoadFallsThroughToRemote(t *testing.T) {
	f := newFixture(t)

	remoteCopy := core.Play{ID: "p1", Name: "remote only"}
	require.NoError(t, f.remote.Set(context.Background(), &remoteCopy))

	got, err := f.service.Load(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "remote only", got.Name)

	// The remote hit is written through into the local store.
	cached, err := f.local.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "remote only", cached.Name)
}

func TestLoadNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoadOfflineRemoteOnly(t *testing.T) {
	f := newFixture(t)
	f.online = false

	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p1"}))

	_, err := f.service.Load(context.Background(), "p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLoadAuthoritativePrefersRemote(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.local.Put(&core.Play{ID: "p1", Name: "stale local", Version: 1}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p1", Name: "fresh remote", Version: 5}))

	got, err := f.service.LoadAuthoritative(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "fresh remote", got.Name)

	// The local copy is refreshed in place.
	cached, err := f.local.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "fresh remote", cached.Name)
}

func TestLoadAuthoritativeRemoteMissKeepsLocal(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.local.Put(&core.Play{ID: "p1", Name: "local only"}))

	got, err := f.service.LoadAuthoritative(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "local only", got.Name)

	// Still present locally: a remote miss never deletes the local copy.
	_, err = f.local.Get("p1")
	assert.NoError(t, err)
}

func TestLoadAuthoritativeOfflineUsesLocal(t *testing.T) {
	f := newFixture(t)
	f.online = false

	require.NoError(t, f.local.Put(&core.Play{ID: "p1", Name: "local"}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p1", Name: "remote"}))

	got, err := f.service.LoadAuthoritative(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Name)
}

func TestListMergesAndShadows(t *testing.T) {
	f := newFixture(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.local.Put(&core.Play{ID: "p1", Name: "local p1", UpdatedAt: base.Add(3 * time.Hour)}))
	require.NoError(t, f.local.Put(&core.Play{ID: "p2", Name: "local p2", UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p1", Name: "remote p1", UpdatedAt: base}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p3", Name: "remote p3", UpdatedAt: base.Add(2 * time.Hour)}))

	plays, err := f.service.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, plays, 3)

	// Newest first, local copy shadowing the remote one for p1.
	assert.Equal(t, "p1", plays[0].ID)
	assert.Equal(t, "local p1", plays[0].Name)
	assert.Equal(t, "p3", plays[1].ID)
	assert.Equal(t, "p2", plays[2].ID)
}

func TestListRemoteFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.remote.failAll = true

	require.NoError(t, f.local.Put(&core.Play{ID: "p1"}))

	plays, err := f.service.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "p1", plays[0].ID)
}

func TestListAppliesLimitAcrossStores(t *testing.T) {
	f := newFixture(t)

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.local.Put(&core.Play{ID: "p1", UpdatedAt: base.Add(time.Hour)}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p2", UpdatedAt: base.Add(2 * time.Hour)}))

	plays, err := f.service.List(context.Background(), store.Filter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "p2", plays[0].ID)
}

func TestDeleteOnline(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.local.Put(&core.Play{ID: "p1"}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p1"}))

	require.NoError(t, f.service.Delete(context.Background(), "p1"))

	_, err := f.local.Get("p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, f.remote.has("p1"))
	assert.Equal(t, 0, f.service.PendingCount())
}

func TestDeleteOfflineQueues(t *testing.T) {
	f := newFixture(t)
	f.online = false

	require.NoError(t, f.local.Put(&core.Play{ID: "p1"}))
	require.NoError(t, f.remote.Set(context.Background(), &core.Play{ID: "p1"}))

	require.NoError(t, f.service.Delete(context.Background(), "p1"))

	_, err := f.local.Get("p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.True(t, f.remote.has("p1"))
	assert.Equal(t, 1, f.service.PendingCount())

	f.online = true
	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, result.Succeeded)
	assert.False(t, f.remote.has("p1"))
}

func TestSyncPendingPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.online = false

	p1, err := f.service.Save(context.Background(), newPlay("first"))
	require.NoError(t, err)
	p2, err := f.service.Save(context.Background(), newPlay("second"))
	require.NoError(t, err)
	require.Equal(t, 2, f.service.PendingCount())

	f.online = true
	f.remote.failAll = true
	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	assert.Len(t, result.Failed, 2)
	assert.Equal(t, 2, f.service.PendingCount())

	f.remote.failAll = false
	result, err = f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, result.Succeeded)
	assert.Equal(t, 0, f.service.PendingCount())
}

func TestSyncPendingOfflineIsNoop(t *testing.T) {
	f := newFixture(t)
	f.online = false

	_, err := f.service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)

	result, err := f.service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 1, f.service.PendingCount())
}

func TestLocalOnlyMode(t *testing.T) {
	local := newFakeLocal()
	service, err := New(Dependencies{Local: local, Logger: zerolog.Nop()})
	require.NoError(t, err)

	saved, err := service.Save(context.Background(), newPlay("Dive"))
	require.NoError(t, err)
	assert.Equal(t, 0, service.PendingCount())

	got, err := service.Load(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dive", got.Name)

	result, err := service.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Succeeded)

	require.NoError(t, service.Delete(context.Background(), saved.ID))
}
