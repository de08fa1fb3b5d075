package parser

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/insightdelivered/statementlens/internal/models"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		formatID string
		wantName string
		wantErr  bool
	}{
		{"bbva_debito_v1", "BBVA", false},
		{"bbva_tc_v1", "BBVA", false},
		{"metro_current_v1", "Metro Bank", false},
		{"hsbc_current_v1", "HSBC", false},
		{"barclays_current_v1", "Barclays", false},
		{"unknown", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.formatID, func(t *testing.T) {
			p, err := r.Lookup(tt.formatID)
			if tt.wantErr {
				var npe *NoParserError
				if !errors.As(err, &npe) {
					t.Fatalf("expected *NoParserError, got %v", err)
				}
				if npe.FormatID != tt.formatID {
					t.Errorf("FormatID: got %q, want %q", npe.FormatID, tt.formatID)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.BankName() != tt.wantName {
				t.Errorf("got %q, want %q", p.BankName(), tt.wantName)
			}
		})
	}
}

func TestRegistry_FormatIDs(t *testing.T) {
	got := DefaultRegistry().FormatIDs()
	want := []string{"barclays_current_v1", "bbva_debito_v1", "bbva_tc_v1", "hsbc_current_v1", "metro_current_v1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register("x", FromPDF(&MetroBankParser{}))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	r.Register("x", FromPDF(&HSBCParser{}))
}

type stubPages struct {
	called bool
}

func (s *stubPages) ParsePages(pages []string) (models.Table, error) {
	s.called = true
	return models.Table{}, nil
}

func (s *stubPages) BankName() string { return "Stub" }

func TestFromPDF_UnreadableDocument(t *testing.T) {
	stub := &stubPages{}
	p := FromPDF(stub)

	if p.BankName() != "Stub" {
		t.Errorf("BankName: got %q", p.BankName())
	}

	_, err := p.Parse(filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatal("expected error for unreadable document")
	}
	if stub.called {
		t.Error("page parser must not run when extraction fails")
	}
}
