// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/coachcore/playvault/pkg/core"
)

// ErrNotFound is returned when no play exists for the requested ID.
var ErrNotFound = errors.New("play not found")

// ErrRemoteUnavailable wraps any remote failure cause (connectivity, auth,
// quota, timeout). The facade treats them all the same: log, enqueue, move on.
var ErrRemoteUnavailable = errors.New("remote store unavailable")

// Filter selects plays by exact match on the indexed attributes.
// Zero-value fields are ignored. Limit caps the merged result, 0 = no cap.
type Filter struct {
	CoachID   string
	TeamID    string
	Category  string
	Formation string
	Limit     int
}

// Local is the on-device durable store. Writes to it are the commit point
// for every facade operation; its failures propagate to the caller.
// Implementations open lazily on first use and must tolerate overlapping
// calls from the same process. Each call is a single transaction.
type Local interface {
	Close() error

	Get(id string) (*core.Play, error)
	Put(play *core.Play) error
	Delete(id string) error
	List(f Filter) ([]core.Play, error)
}

// Remote is the cloud document store: authoritative but not always
// reachable. Every call carries a context with a bounded deadline; a
// deadline hit is indistinguishable from any other remote failure.
type Remote interface {
	Set(ctx context.Context, play *core.Play) error
	Get(ctx context.Context, id string) (*core.Play, error)
	Query(ctx context.Context, f Filter) ([]core.Play, error)
	Delete(ctx context.Context, id string) error
}
