// Package parser turns statement documents into movement tables. Each
// supported layout has a parser registered under its format id.
package parser

import (
	"fmt"
	"sort"
	"sync"

	"github.com/insightdelivered/statementlens/internal/extractor"
	"github.com/insightdelivered/statementlens/internal/models"
)

// Parser extracts movement rows from a statement document.
type Parser interface {
	// Parse reads the document at path. A readable document with no
	// movements yields an empty table, not an error.
	Parse(path string) (models.Table, error)
	// BankName returns the human-readable bank name.
	BankName() string
}

// PageParser works on already extracted page text.
type PageParser interface {
	ParsePages(pages []string) (models.Table, error)
	BankName() string
}

// NoParserError is returned when a format was detected but nothing is
// registered to extract it.
type NoParserError struct {
	FormatID string
}

func (e *NoParserError) Error() string {
	return fmt.Sprintf("no parser available for format %q", e.FormatID)
}

type pdfParser struct {
	pages PageParser
}

// FromPDF adapts a PageParser into a Parser that reads PDF files.
func FromPDF(pp PageParser) Parser {
	return &pdfParser{pages: pp}
}

func (p *pdfParser) Parse(path string) (models.Table, error) {
	pages, err := extractor.ExtractText(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("extracting %s: %w", path, err)
	}
	return p.pages.ParsePages(pages)
}

func (p *pdfParser) BankName() string {
	return p.pages.BankName()
}

// Registry maps format ids to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds p under formatID. Registering the same id twice is a
// programming error and panics.
func (r *Registry) Register(formatID string, p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.parsers[formatID]; dup {
		panic(fmt.Sprintf("parser: duplicate registration for %q", formatID))
	}
	r.parsers[formatID] = p
}

// Lookup returns the parser for formatID or a *NoParserError.
func (r *Registry) Lookup(formatID string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[formatID]
	if !ok {
		return nil, &NoParserError{FormatID: formatID}
	}
	return p, nil
}

// FormatIDs returns the registered ids in sorted order.
func (r *Registry) FormatIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.parsers))
	for id := range r.parsers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultRegistry returns a registry with every built-in parser.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("bbva_debito_v1", FromPDF(&BBVADebitParser{}))
	r.Register("bbva_tc_v1", FromPDF(&BBVACreditCardParser{}))
	r.Register("metro_current_v1", FromPDF(&MetroBankParser{}))
	r.Register("hsbc_current_v1", FromPDF(&HSBCParser{}))
	r.Register("barclays_current_v1", FromPDF(&BarclaysParser{}))
	return r
}
