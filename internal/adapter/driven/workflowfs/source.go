// Package workflowfs discovers benchmark workflow definitions on disk.
package workflowfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ericfisherdev/cibench/internal/domain/model"
	"github.com/ericfisherdev/cibench/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.WorkflowSource = (*Source)(nil)

const benchmarkPattern = "benchmark_*.yml"

// Source lists benchmark_*.yml files from a GitHub workflows directory.
type Source struct {
	dir string
}

// NewSource creates a Source reading from dir.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

type workflowDoc struct {
	Name string            `yaml:"name"`
	Jobs map[string]jobDoc `yaml:"jobs"`
}

type jobDoc struct {
	Name     string `yaml:"name"`
	Strategy struct {
		// Matrix may be an expression string; only a mapping is inspected.
		Matrix yaml.Node `yaml:"matrix"`
	} `yaml:"strategy"`
}

type matrixDoc struct {
	Include []struct {
		Name string `yaml:"name"`
	} `yaml:"include"`
}

// ListBenchmarkWorkflows returns every benchmark workflow in filename order.
// A file without a top-level name cannot be correlated and is reported as a
// data integrity error.
func (s *Source) ListBenchmarkWorkflows(ctx context.Context) ([]model.WorkflowFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	paths, err := filepath.Glob(filepath.Join(s.dir, benchmarkPattern))
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", s.dir, err)
	}

	files := make([]model.WorkflowFile, 0, len(paths))
	for _, p := range paths {
		wf, err := ParseFile(p)
		if err != nil {
			return nil, err
		}
		files = append(files, *wf)
	}

	return files, nil
}

// ParseFile reads and parses one workflow file.
func ParseFile(path string) (*model.WorkflowFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow %s: %w", path, err)
	}

	def, name, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing workflow %s: %w", path, err)
	}

	filename := filepath.Base(path)
	if name == "" {
		return nil, &model.DataIntegrityError{Entity: filename, Reason: "workflow has no top-level name"}
	}

	return &model.WorkflowFile{
		Filename:   filename,
		Name:       name,
		Definition: def,
	}, nil
}

// Parse decodes workflow YAML into its job definitions and top-level name.
func Parse(data []byte) (*model.WorkflowDefinition, string, error) {
	var doc workflowDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", err
	}

	def := &model.WorkflowDefinition{Jobs: make(map[string]model.WorkflowJobDef, len(doc.Jobs))}
	for id, job := range doc.Jobs {
		jd := model.WorkflowJobDef{Name: job.Name}

		if job.Strategy.Matrix.Kind == yaml.MappingNode {
			var m matrixDoc
			if err := job.Strategy.Matrix.Decode(&m); err != nil {
				return nil, "", fmt.Errorf("decoding matrix of job %s: %w", id, err)
			}
			for _, inc := range m.Include {
				if inc.Name != "" {
					jd.MatrixNames = append(jd.MatrixNames, inc.Name)
				}
			}
		}

		def.Jobs[id] = jd
	}

	return def, doc.Name, nil
}
