// Package syncqueue holds mutations that could not be applied to the remote
// store, in enqueue order, journaled to disk so they survive process
// restarts. Items leave the queue one at a time, only after the remote
// operation they represent has succeeded.
package syncqueue

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coachcore/playvault/pkg/core"
)

// Op is the remote operation a pending item represents.
type Op string

const (
	OpSave   Op = "save"
	OpDelete Op = "delete"
)

// Item is one pending mutation. Play is nil for deletes.
type Item struct {
	ID         string     `json:"id"`
	PlayID     string     `json:"playId"`
	Op         Op         `json:"op"`
	Play       *core.Play `json:"play,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	Attempts   int        `json:"attempts"`
}

// Queue is the durable pending-mutation list. All methods are safe for
// concurrent use; every mutation rewrites the journal before returning.
type Queue struct {
	mu    sync.Mutex
	path  string
	items []Item
}

// Open loads the queue journal at path, creating an empty queue if the file
// does not exist yet.
func Open(path string) (*Queue, error) {
	q := &Queue{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return q, nil
		}
		return nil, fmt.Errorf("failed to read sync queue journal: %w", err)
	}
	if len(data) == 0 {
		return q, nil
	}
	if err := json.Unmarshal(data, &q.items); err != nil {
		return nil, fmt.Errorf("failed to parse sync queue journal: %w", err)
	}
	return q, nil
}

// EnqueueSave queues a save for later remote application. A queued item for
// the same play is replaced in place: a newer save supersedes an older one,
// and saving after a queued delete turns the slot back into a save.
func (q *Queue) EnqueueSave(play *core.Play) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item{
		ID:         uuid.NewString(),
		PlayID:     play.ID,
		Op:         OpSave,
		Play:       play.Clone(),
		EnqueuedAt: time.Now().UTC(),
	}
	q.upsertLocked(item)
	return q.persistLocked()
}

// EnqueueDelete queues a delete for later remote application, superseding
// any queued save for the same play.
func (q *Queue) EnqueueDelete(playID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := Item{
		ID:         uuid.NewString(),
		PlayID:     playID,
		Op:         OpDelete,
		EnqueuedAt: time.Now().UTC(),
	}
	q.upsertLocked(item)
	return q.persistLocked()
}

// upsertLocked replaces an existing item for the same play, keeping its
// queue position, or appends a new one.
func (q *Queue) upsertLocked(item Item) {
	for i := range q.items {
		if q.items[i].PlayID == item.PlayID {
			q.items[i] = item
			return
		}
	}
	q.items = append(q.items, item)
}

// Items returns a snapshot of the queue in enqueue order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]Item, len(q.items))
	copy(snapshot, q.items)
	return snapshot
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Remove drops any queued item for the given play ID. Called after a
// direct online remote write succeeds: the write supersedes whatever was
// queued for that play, and replaying the stale payload would regress the
// remote copy. Removing an unqueued play is a no-op.
func (q *Queue) Remove(playID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].PlayID == playID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return q.persistLocked()
		}
	}
	return nil
}

// Ack removes exactly the item with the given queue ID after its remote
// operation succeeded. Acking an unknown ID is a no-op: the item was already
// superseded by a newer mutation for the same play.
func (q *Queue) Ack(itemID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == itemID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return q.persistLocked()
		}
	}
	return nil
}

// MarkFailed bumps the attempt counter on the item with the given queue ID.
// The item stays queued for a future flush pass.
func (q *Queue) MarkFailed(itemID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.items {
		if q.items[i].ID == itemID {
			q.items[i].Attempts++
			return q.persistLocked()
		}
	}
	return nil
}

// persistLocked rewrites the whole journal. The journal store is read-all /
// write-all; the queue never grows past what a coach can edit offline.
// A temp-file-and-rename swap keeps a crash mid-write from leaving a
// truncated journal that the next Open cannot parse.
func (q *Queue) persistLocked() error {
	data, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("failed to encode sync queue journal: %w", err)
	}
	tmp := q.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write sync queue journal: %w", err)
	}
	if err := os.Rename(tmp, q.path); err != nil {
		return fmt.Errorf("failed to swap sync queue journal: %w", err)
	}
	return nil
}
