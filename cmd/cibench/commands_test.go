package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cibench/internal/domain/model"
)

func TestSelectedProviders(t *testing.T) {
	tests := []struct {
		name    string
		flags   []string
		want    []model.Provider
		wantErr bool
	}{
		{name: "default both", flags: []string{"github", "circleci"}, want: []model.Provider{model.ProviderGitHub, model.ProviderCircleCI}},
		{name: "report order kept", flags: []string{"circleci", "github"}, want: []model.Provider{model.ProviderGitHub, model.ProviderCircleCI}},
		{name: "duplicates dropped", flags: []string{"circleci", "circleci"}, want: []model.Provider{model.ProviderCircleCI}},
		{name: "unknown", flags: []string{"gitlab"}, wantErr: true},
		{name: "none", flags: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providerNames = tt.flags
			t.Cleanup(func() { providerNames = nil })

			got, err := selectedProviders()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
