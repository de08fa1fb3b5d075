package extractor

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadableText(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  bool
	}{
		{
			name:  "english statement",
			pages: []string{"Metro Bank Account Statement\nDate Description Paid out Paid in Balance\n15/01/2024 CARD PAYMENT 25.99"},
			want:  true,
		},
		{
			name:  "spanish statement",
			pages: []string{"BBVA ESTADO DE CUENTA\nDetalle de movimientos realizados\n02/ENE 03/ENE SPEI RECIBIDO 1,500.00"},
			want:  true,
		},
		{
			name:  "too short",
			pages: []string{"Bank"},
			want:  false,
		},
		{
			name:  "binary garbage",
			pages: []string{strings.Repeat("\x01\x02\x03ÿþ", 30)},
			want:  false,
		},
		{
			name:  "readable but no statement vocabulary",
			pages: []string{strings.Repeat("lorem ipsum dolor sit amet ", 5)},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isReadableText(tt.pages); got != tt.want {
				t.Errorf("isReadableText() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTextQuality(t *testing.T) {
	if q := textQuality(nil); q != 0 {
		t.Errorf("empty input: got %f, want 0", q)
	}
	if q := textQuality([]string{"Saldo liquidación: 1,234.56"}); q != 1 {
		t.Errorf("plain text: got %f, want 1", q)
	}
}

func TestExtractSample_MissingFile(t *testing.T) {
	_, err := ExtractSample(filepath.Join(t.TempDir(), "missing.pdf"), 2)
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractText_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.pdf")
	if err := os.WriteFile(path, []byte("plain text, not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractText(path); err == nil {
		t.Error("expected error for non-PDF content")
	}
}
