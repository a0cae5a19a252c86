package ecoscope

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storachaData = "testdata/storacha/data"

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithDataDir(storachaData), WithLogger(quietLogger())}, opts...)
	e, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestNew_LoadsAllDocuments(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	require.NotNil(t, e.Store())
	res := e.Query().Status()
	require.Len(t, res.Documents, 3)
	for _, d := range res.Documents {
		assert.Equal(t, "loaded", d.Status, d.Name)
		assert.NotEmpty(t, d.Fingerprint, d.Name)
	}
	assert.Contains(t, res.Meta, MetaEntry{Key: "generated_by", Value: "scan_products"})
}

func TestNew_NoDatasets(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), WithDataDir(t.TempDir()), WithLogger(quietLogger()))
	require.ErrorIs(t, err, ErrNoDatasets)
}

func TestNew_BadIgnorePattern(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), WithDataDir(storachaData), WithIgnore("[unclosed"), WithLogger(quietLogger()))
	require.Error(t, err)
}

func TestNew_IgnoreDropsRepos(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithIgnore("*-service"))
	q := e.Query()

	assert.NotContains(t, q.Repos(), "upload-service")
	assert.NotContains(t, q.Repos(), "indexing-service")
	assert.False(t, q.Capability("blob/add").Matched)
	assert.True(t, q.Impact("@storacha/client").Package.NotFound)
}

func TestNew_CustomDocumentNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join(storachaData, "product-map.json"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products.json"), src, 0o644))

	e, err := New(context.Background(), WithDataDir(dir), WithDocuments("", "", "products.json"), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close()

	docs := e.Query().Status().Documents
	assert.Equal(t, "missing", docs[0].Status)
	assert.Equal(t, "products.json", docs[2].Name)
	assert.Equal(t, "loaded", docs[2].Status)
}

func TestNew_TaxonomyRegroupsProducts(t *testing.T) {
	t.Parallel()
	tax := &Taxonomy{Products: []TaxonomyProduct{
		{Name: "Core", Description: "Core services", Repos: []string{"upload-api", "indexing-service", "piri"}},
	}}
	e := newTestEngine(t, WithTaxonomy(tax))
	q := e.Query()

	assert.Equal(t, []string{"Core"}, q.Products())
	res := q.Product("core")
	require.True(t, res.Matched)
	require.Len(t, res.Members, 3)
	assert.Equal(t, "Core", q.Impact("upload-api").Repo.Product)
	assert.Empty(t, q.Impact("freeway").Repo.Product, "unclaimed repos become standalone")
}

func TestNewFromSnapshot(t *testing.T) {
	t.Parallel()
	e, err := NewFromSnapshot(fixtureSnapshot(), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close()

	assert.True(t, e.Query().Capability("blob/add").Matched)

	rows, err := e.Store().Query(context.Background(), "SELECT count(*) AS n FROM capabilities")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 5, rows[0]["n"])
}

func TestNewFromSnapshot_DuplicateDocumentKept(t *testing.T) {
	t.Parallel()
	snap := fixtureSnapshot()
	snap.Documents = append(snap.Documents, snap.Documents[0])
	e, err := NewFromSnapshot(snap, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close()
	assert.Len(t, e.Query().Status().Documents, len(snap.Documents))
}

func TestNew_SameFileForTwoDocuments(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, WithDocuments("api-surface-map.json", "./api-surface-map.json", ""))

	docs := e.Query().Status().Documents
	require.Len(t, docs, 3)
	assert.Equal(t, "loaded", docs[0].Status)
	assert.Equal(t, "malformed", docs[1].Status)
	assert.Contains(t, docs[1].Error, "already read")
	assert.Equal(t, "loaded", docs[2].Status)
	assert.True(t, e.Query().Capability("blob/add").Matched)
}

func TestEngines_AreIsolated(t *testing.T) {
	t.Parallel()
	a, err := NewFromSnapshot(fixtureSnapshot(), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer a.Close()
	b, err := NewFromSnapshot(&Snapshot{Edges: []Edge{edge("x", "y")}}, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer b.Close()

	assert.True(t, a.Query().Capability("blob/add").Matched)
	assert.False(t, b.Query().Capability("blob/add").Matched)
	assert.Empty(t, a.Query().Graph("x").Outbound)
}

func TestClose(t *testing.T) {
	t.Parallel()
	e, err := NewFromSnapshot(&Snapshot{}, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, e.Close())
}
