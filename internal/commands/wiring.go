package commands

import (
	"fmt"

	"github.com/insightdelivered/statementlens/internal/config"
	"github.com/insightdelivered/statementlens/internal/formats"
	"github.com/insightdelivered/statementlens/internal/jobs"
	"github.com/insightdelivered/statementlens/internal/parser"
	"github.com/insightdelivered/statementlens/internal/storage"
)

// openCatalog returns the built-in definitions, or those in dir when set.
func openCatalog(dir string) (*formats.Catalog, error) {
	if dir == "" {
		return formats.Default()
	}
	c, err := formats.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading formats from %s: %w", dir, err)
	}
	return c, nil
}

// newService wires a pipeline over st with files kept below dataDir.
func newService(cfg *config.Config, st jobs.Store, dataDir string, opts ...jobs.Option) (*jobs.Service, *formats.Catalog, *parser.Registry, error) {
	catalog, err := openCatalog(cfg.Detection.FormatsDir)
	if err != nil {
		return nil, nil, nil, err
	}
	files, err := storage.NewLocal(dataDir)
	if err != nil {
		return nil, nil, nil, err
	}
	parsers := parser.DefaultRegistry()

	opts = append([]jobs.Option{
		jobs.WithSamplePages(cfg.Detection.SamplePages),
		jobs.WithPreviewRows(cfg.Upload.PreviewRows),
	}, opts...)

	return jobs.NewService(st, files, catalog, parsers, opts...), catalog, parsers, nil
}
