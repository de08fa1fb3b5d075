package formats

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFS_SortedByFileName(t *testing.T) {
	fsys := fstest.MapFS{
		"defs/b.yml":       {Data: []byte("id: second\nbank: B\n")},
		"defs/a.yaml":      {Data: []byte("id: first\nbank: A\nproduct_type: TC\n")},
		"defs/notes.txt":   {Data: []byte("ignored")},
		"defs/c_rules.yml": {Data: []byte("bank: C\n")},
	}

	cat, err := LoadFS(fsys, "defs")
	require.NoError(t, err)
	require.Equal(t, 3, cat.Len())

	all := cat.All()
	assert.Equal(t, "first", all[0].ID)
	assert.Equal(t, "second", all[1].ID)
	assert.Equal(t, "c_rules", all[2].ID, "id defaults to the file stem")

	assert.Equal(t, "TC", all[0].ProductType)
	assert.Equal(t, Unknown, all[1].ProductType)
	assert.Equal(t, "C", all[2].Bank)
}

func TestLoadFS_MalformedFileAborts(t *testing.T) {
	fsys := fstest.MapFS{
		"defs/good.yml": {Data: []byte("id: good\n")},
		"defs/bad.yml":  {Data: []byte("id: [unterminated\n")},
	}

	_, err := LoadFS(fsys, "defs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.yml")
}

func TestLoad_EmptyDirectory(t *testing.T) {
	cat, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, cat.Len())
	assert.Empty(t, cat.All())
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yml"), []byte(`
id: x_v1
bank: X
text_must_contain_any: [XBANK]
text_should_contain: [STATEMENT]
regex_should_match: ['^\d{2}/\d{2}']
`), 0o644))

	cat, err := Load(dir)
	require.NoError(t, err)

	d, ok := cat.Get("x_v1")
	require.True(t, ok)
	assert.Equal(t, []string{"XBANK"}, d.TextMustContainAny)
	assert.Equal(t, []string{"STATEMENT"}, d.TextShouldContain)
	require.Len(t, d.Patterns(), 1)
	assert.NotNil(t, d.Patterns()[0])

	_, ok = cat.Get("missing")
	assert.False(t, ok)
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	_, err := New([]Definition{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)
}

func TestNew_InvalidPatternIsKeptAsNil(t *testing.T) {
	cat, err := New([]Definition{{ID: "a", RegexShouldMatch: []string{"([", `\d+`}}})
	require.NoError(t, err)

	d, _ := cat.Get("a")
	require.Len(t, d.Patterns(), 2)
	assert.Nil(t, d.Patterns()[0])
	assert.NotNil(t, d.Patterns()[1])
}

func TestDefault(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	ids := make([]string, 0, cat.Len())
	for _, d := range cat.All() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{
		"barclays_current_v1",
		"bbva_debito_v1",
		"bbva_tc_v1",
		"hsbc_current_v1",
		"metro_current_v1",
	}, ids)

	for _, d := range cat.All() {
		for i, p := range d.Patterns() {
			assert.NotNil(t, p, "%s pattern %d should compile", d.ID, i)
		}
	}
}

func TestNilCatalog(t *testing.T) {
	var c *Catalog
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.All())
	_, ok := c.Get("x")
	assert.False(t, ok)
}
