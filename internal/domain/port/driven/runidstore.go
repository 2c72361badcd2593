package driven

import (
	"context"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// RunIDStore persists the run IDs of a dispatched batch so a later step (or a
// later CI job) can build the report.
type RunIDStore interface {
	// Save records the handles of a correlation, replacing any previous
	// record for the same provider.
	Save(ctx context.Context, c *model.Correlation) error
	// Load returns the stored run IDs for a provider. An empty slice means
	// nothing was stored.
	Load(ctx context.Context, provider model.Provider) ([]model.RunID, error)
}
