package driven

import (
	"context"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

// ReportWriter persists the assembled report rows.
type ReportWriter interface {
	WriteRows(ctx context.Context, rows []model.CanonicalRow) error
}
