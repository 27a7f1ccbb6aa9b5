package playstore

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/coachcore/playvault/internal/playstore"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics holds the facade's instruments. The global meter is a no-op
// unless the host application configures an OTel SDK.
type metrics struct {
	saves          metric.Int64Counter
	deletes        metric.Int64Counter
	remoteFailures metric.Int64Counter
	synced         metric.Int64Counter
	queueDepth     metric.Int64ObservableGauge
}

func newMetrics(s *Service) (*metrics, error) {
	m := meter()
	out := &metrics{}

	var err error
	out.saves, err = m.Int64Counter(
		"playstore.saves",
		metric.WithDescription("Total plays saved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating saves counter: %w", err)
	}

	out.deletes, err = m.Int64Counter(
		"playstore.deletes",
		metric.WithDescription("Total plays deleted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating deletes counter: %w", err)
	}

	out.remoteFailures, err = m.Int64Counter(
		"playstore.remote.failures",
		metric.WithDescription("Total remote store failures degraded to local-only behavior"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating remote failures counter: %w", err)
	}

	out.synced, err = m.Int64Counter(
		"playstore.sync.applied",
		metric.WithDescription("Total queued mutations applied to the remote store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating synced counter: %w", err)
	}

	out.queueDepth, err = m.Int64ObservableGauge(
		"playstore.sync.queue.depth",
		metric.WithDescription("Current number of mutations awaiting sync"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue depth gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(out.queueDepth, int64(s.PendingCount()))
			return nil
		},
		out.queueDepth,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue depth callback: %w", err)
	}

	return out, nil
}
