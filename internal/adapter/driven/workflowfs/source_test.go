package workflowfs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/cibench/internal/adapter/driven/workflowfs"
	"github.com/ericfisherdev/cibench/internal/domain/model"
)

const fastapiWorkflow = `name: Benchmark fastapi

on:
  workflow_dispatch:

jobs:
  benchmark:
    name: "fastapi - ${{ matrix.name }}"
    runs-on: ${{ matrix.runner }}
    strategy:
      matrix:
        include:
          - name: ubuntu-22.04 - 2 cores
            runner: ubuntu-22.04
          - name: ubuntu-22.04-4-cores - 4 cores - large runner
            runner: ubuntu-22.04-4-cores
    steps:
      - name: Clone fastapi
        uses: actions/checkout@v4
      - name: Build
        run: make build
`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestListBenchmarkWorkflows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benchmark_fastapi.yml", fastapiWorkflow)
	writeFile(t, dir, "benchmark_django.yml", "name: Benchmark django\njobs:\n  build:\n    name: django - macos-14 - 3 cores\n")
	writeFile(t, dir, "ci.yml", "name: CI\n")
	writeFile(t, dir, "benchmark_notes.yaml", "name: ignored\n")

	files, err := workflowfs.NewSource(dir).ListBenchmarkWorkflows(context.Background())

	require.NoError(t, err)
	require.Len(t, files, 2)

	assert.Equal(t, "benchmark_django.yml", files[0].Filename)
	assert.Equal(t, "Benchmark django", files[0].Name)
	assert.Empty(t, files[0].Definition.Jobs["build"].MatrixNames)

	assert.Equal(t, "benchmark_fastapi.yml", files[1].Filename)
	assert.Equal(t, "Benchmark fastapi", files[1].Name)
	job := files[1].Definition.Jobs["benchmark"]
	assert.Equal(t, "fastapi - ${{ matrix.name }}", job.Name)
	assert.Equal(t, []string{
		"ubuntu-22.04 - 2 cores",
		"ubuntu-22.04-4-cores - 4 cores - large runner",
	}, job.MatrixNames)
}

func TestListBenchmarkWorkflows_EmptyDir(t *testing.T) {
	files, err := workflowfs.NewSource(t.TempDir()).ListBenchmarkWorkflows(context.Background())

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListBenchmarkWorkflows_MissingName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benchmark_anon.yml", "on: push\njobs: {}\n")

	_, err := workflowfs.NewSource(dir).ListBenchmarkWorkflows(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrDataIntegrity))
}

func TestListBenchmarkWorkflows_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benchmark_broken.yml", "name: [unterminated\n")

	_, err := workflowfs.NewSource(dir).ListBenchmarkWorkflows(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "benchmark_broken.yml")
}

func TestParse_ExpressionMatrixIsIgnored(t *testing.T) {
	def, name, err := workflowfs.Parse([]byte(`name: Benchmark dyn
jobs:
  bench:
    name: dyn - ${{ matrix.name }}
    strategy:
      matrix: ${{ fromJson(needs.setup.outputs.matrix) }}
`))

	require.NoError(t, err)
	assert.Equal(t, "Benchmark dyn", name)
	assert.Empty(t, def.Jobs["bench"].MatrixNames)
}
