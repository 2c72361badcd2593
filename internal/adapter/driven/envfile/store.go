// Package envfile persists run IDs as environment variables, either in the
// GitHub Actions env file (so later steps of the job inherit them) or in the
// current process.
package envfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunIDStore = (*Store)(nil)

// Store writes PREFIX_BENCHMARK_WORKFLOW_RUN_IDS=<ids> lines.
type Store struct {
	path string
}

// NewStore creates a Store appending to path. An empty path keeps IDs in the
// process environment only.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Save records the run IDs of c.
func (s *Store) Save(_ context.Context, c *model.Correlation) error {
	key := c.Provider.RunIDsEnvVar()
	value := model.JoinRunIDs(c.RunIDs())

	if s.path == "" {
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setting %s: %w", key, err)
		}
		slog.Info("run IDs exported to process environment", "provider", c.Provider, "var", key)
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening env file %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		return fmt.Errorf("writing %s to %s: %w", key, s.path, err)
	}

	// Later steps of this process read the same variable.
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	slog.Info("run IDs appended to env file", "provider", c.Provider, "var", key, "path", s.path)
	return nil
}

// Load returns the IDs from the process environment, falling back to the env
// file. The last assignment in the file wins.
func (s *Store) Load(_ context.Context, provider model.Provider) ([]model.RunID, error) {
	key := provider.RunIDsEnvVar()

	if v := os.Getenv(key); v != "" {
		return model.SplitRunIDs(v), nil
	}

	if s.path == "" {
		return nil, nil
	}

	env, err := godotenv.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", s.path, err)
	}

	return model.SplitRunIDs(env[key]), nil
}
