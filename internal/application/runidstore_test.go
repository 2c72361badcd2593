package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cibench/internal/application"
	"github.com/ericfisherdev/cibench/internal/domain/model"
)

func TestMultiRunIDStore_SaveFansOut(t *testing.T) {
	first := &mockRunIDStore{saveErr: errors.New("disk full")}
	second := &mockRunIDStore{}
	corr := pendingCorrelation("1", "2")

	err := application.NewMultiRunIDStore(first, nil, second).Save(context.Background(), corr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, first.saved, 1)
	assert.Len(t, second.saved, 1, "a failing store does not stop the others")
}

func TestMultiRunIDStore_LoadFirstNonEmpty(t *testing.T) {
	empty := &mockRunIDStore{}
	env := &mockRunIDStore{ids: map[model.Provider][]model.RunID{model.ProviderGitHub: {"5", "6"}}}
	db := &mockRunIDStore{ids: map[model.Provider][]model.RunID{model.ProviderGitHub: {"1"}}}
	store := application.NewMultiRunIDStore(empty, env, db)

	ids, err := store.Load(context.Background(), model.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, []model.RunID{"5", "6"}, ids)

	ids, err = store.Load(context.Background(), model.ProviderCircleCI)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestMultiRunIDStore_LoadError(t *testing.T) {
	broken := &mockRunIDStore{loadErr: errFlaky}

	_, err := application.NewMultiRunIDStore(broken).Load(context.Background(), model.ProviderCircleCI)

	assert.ErrorIs(t, err, errFlaky)
}
