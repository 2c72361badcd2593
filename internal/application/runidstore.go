package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunIDStore = (*MultiRunIDStore)(nil)

// MultiRunIDStore writes to every store and reads from the first that has IDs.
type MultiRunIDStore struct {
	stores []driven.RunIDStore
}

// NewMultiRunIDStore creates a MultiRunIDStore. Nil stores are skipped.
func NewMultiRunIDStore(stores ...driven.RunIDStore) *MultiRunIDStore {
	m := &MultiRunIDStore{}
	for _, s := range stores {
		if s != nil {
			m.stores = append(m.stores, s)
		}
	}
	return m
}

// Save attempts every store and joins their errors.
func (m *MultiRunIDStore) Save(ctx context.Context, c *model.Correlation) error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Save(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("saving %s run IDs: %w", c.Provider, err)
	}
	return nil
}

// Load returns the IDs of the first store that has any.
func (m *MultiRunIDStore) Load(ctx context.Context, provider model.Provider) ([]model.RunID, error) {
	for _, s := range m.stores {
		ids, err := s.Load(ctx, provider)
		if err != nil {
			return nil, fmt.Errorf("loading %s run IDs: %w", provider, err)
		}
		if len(ids) > 0 {
			return ids, nil
		}
	}
	return nil, nil
}
