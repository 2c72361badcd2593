package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Poller waits for the runs of a correlation to finish.
type Poller struct {
	fetcher  driven.RunStatusFetcher
	interval time.Duration
	timeout  time.Duration
}

// NewPoller creates a Poller that sweeps every interval. A zero timeout
// waits indefinitely.
func NewPoller(fetcher driven.RunStatusFetcher, interval, timeout time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
	}
}

// AwaitCompletion queries every active run once per sweep until all of them
// are terminal, then returns the handles with their outcomes. A failed status
// query keeps the run active for the next sweep. Finished runs leave the
// active set only once the sweep is over.
func (p *Poller) AwaitCompletion(ctx context.Context, target model.DispatchTarget, c *model.Correlation) ([]model.RunHandle, error) {
	handles := slices.Clone(c.Handles)

	active := make([]int, 0, len(handles))
	for i, h := range handles {
		if !h.RunID.Resolved() {
			return nil, fmt.Errorf("%s run %q has no resolved ID", c.Provider, h.DisplayName)
		}
		if h.Status != model.RunStatusTerminal {
			active = append(active, i)
		}
	}

	ctx, cancel := bounded(ctx, p.timeout)
	defer cancel()

	slog.Info("waiting for runs to finish", "provider", c.Provider, "runs", len(active), "interval", p.interval)

	for sweep := 1; len(active) > 0; sweep++ {
		remaining := make([]int, 0, len(active))

		for _, i := range active {
			h := &handles[i]

			state, err := p.fetcher.FetchRunState(ctx, target, h.RunID)
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("polling %s runs: %w", c.Provider, context.Cause(ctx))
				}
				slog.Warn("run status query failed", "provider", c.Provider, "run_id", h.RunID, "sweep", sweep, "error", err)
				remaining = append(remaining, i)
				continue
			}

			if !state.Terminal {
				h.Status = model.RunStatusRunning
				remaining = append(remaining, i)
				continue
			}

			h.Status = model.RunStatusTerminal
			h.Outcome = state.Outcome
			slog.Info("run finished", "provider", c.Provider, "run_id", h.RunID, "workflow", h.DisplayName, "outcome", h.Outcome)
		}

		active = remaining
		if len(active) == 0 {
			break
		}

		slog.Debug("sweep complete", "provider", c.Provider, "sweep", sweep, "active", len(active))
		if err := sleep(ctx, p.interval); err != nil {
			return nil, fmt.Errorf("polling %s runs: %d still active after %d sweep(s): %w", c.Provider, len(active), sweep, err)
		}
	}

	slog.Info("all runs finished", "provider", c.Provider, "runs", len(handles))
	return handles, nil
}
