// Package csvreport writes benchmark rows as a semicolon-delimited CSV file.
package csvreport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportWriter = (*Writer)(nil)

const delimiter = ';'

// Writer replaces the file at path with the header and the given rows.
type Writer struct {
	path string
}

// NewWriter creates a Writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// WriteRows writes the report. The file is truncated first.
func (w *Writer) WriteRows(ctx context.Context, rows []model.CanonicalRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create report %s: %w", w.path, err)
	}

	if err := Encode(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report %s: %w", w.path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report %s: %w", w.path, err)
	}

	slog.Info("report written", "path", w.path, "rows", len(rows))
	return nil
}

// Encode writes the header followed by one record per row.
func Encode(out io.Writer, rows []model.CanonicalRow) error {
	cw := csv.NewWriter(out)
	cw.Comma = delimiter

	if err := cw.Write(model.ReportHeader); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.CIProvider,
			r.RunnerOS,
			strconv.Itoa(r.RunnerCores),
			r.TestedRepository,
			r.StepName,
			strconv.FormatInt(r.DurationSeconds, 10),
			r.AdditionalInfo,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
