package runtime

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/ecoscope"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRuntime(t *testing.T, opts ...RuntimeOption) *Runtime {
	t.Helper()
	snap := &ecoscope.Snapshot{
		Capabilities: []ecoscope.Capability{
			{Name: "blob/add", Repo: "upload-service", Export: "add", File: "src/blob.js"},
			{Name: "space/info", Repo: "upload-service", Export: "info", File: "src/space.js"},
		},
		Handlers: []ecoscope.Handler{
			{Repo: "indexing-service", Kind: "service_factory", CapabilityRef: "Blob.add", File: "svc.go"},
		},
		Edges: []ecoscope.Edge{
			{From: "A", To: "X", Via: "rpc_invocation"},
			{From: "X", To: "B", Via: "http_fetch"},
		},
		InfraRes: []ecoscope.InfraResource{
			{Repo: "upload-api", Type: "dynamodb_table", Field: "name", Identifier: "store", File: "db.ts"},
		},
		Products: []ecoscope.Product{{Name: "Upload Platform", Members: []string{"upload-service", "upload-api"}}},
		Repos: []ecoscope.Repo{
			{Name: "upload-service", Language: "JavaScript", Role: "library", Publishes: []string{"@storacha/capabilities"}, Product: "Upload Platform"},
			{Name: "upload-api", Language: "JavaScript", Role: "service", SameDeps: []string{"upload-service"}, Product: "Upload Platform"},
		},
	}
	e, err := ecoscope.NewFromSnapshot(snap, ecoscope.WithLogger(quietLogger()))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	opts = append([]RuntimeOption{WithLogger(quietLogger())}, opts...)
	return NewRuntime(e, opts...)
}

// --- Query host functions ---

func TestRunSource_Capability(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	script := `
res := capability("blob/add")
assert(res["matched"], "expected a match")
assert(len(res["definitions"]) == 1, 'expected 1 definition, got {len(res["definitions"])}')
assert(res["definitions"][0]["repo"] == "upload-service", "wrong defining repo")
res["handlers"][0]["repo"]
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, "indexing-service", got)
}

func TestRunSource_ResultIsGoValue(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	got, err := rt.RunSource(context.Background(), `impact("@storacha/capabilities")`, nil)
	require.NoError(t, err)
	m, ok := got.(map[string]any)
	require.True(t, ok, "got %T", got)
	assert.Equal(t, "package", m["kind"])
}

func TestRunSource_Path(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	script := `
res := path("A", "B")
assert(res["found"], "expected a path")
hops := res["paths"][0]["hops"]
len(hops)
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got)
}

func TestRunSource_ComposedQuery(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	// Every capability defined by a member of the matched product.
	script := `
p := product("upload")
names := []
for _, m := range p["members"] {
    defined := capability_repo(m["name"])["defined"]
    if defined != nil {
        for _, c := range defined {
            names.append(c["can"])
        }
    }
}
names
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"blob/add", "space/info"}, got)
}

func TestRunSource_Listings(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	got, err := rt.RunSource(context.Background(), `[len(repos()), len(products()), len(capability_names())]`, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(2), int64(1), int64(2)}, got)
}

func TestRunSource_InfraAndRepo(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	script := `
assert(len(infra_type("dynamo")["repos"]) == 1, "expected one repo")
assert(infra("upload-api")["groups"][0]["type"] == "dynamodb_table", "wrong type")
assert(!repo("ghost")["found"], "ghost should not be found")
repo("upload-api")["found"]
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestRunSource_WrongArgumentType(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	_, err := rt.RunSource(context.Background(), `capability(42)`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected string")

	_, err = rt.RunSource(context.Background(), `path("A")`, nil)
	require.Error(t, err)
}

func TestRunSource_DBQuery(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	script := `
rows := db_query("SELECT name, repo FROM capabilities WHERE repo = ? ORDER BY id", "upload-service")
assert(len(rows) == 2, 'expected 2 rows, got {len(rows)}')
rows[1]["name"]
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, "space/info", got)
}

func TestRunSource_DBQueryRejectsWrites(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	_, err := rt.RunSource(context.Background(), `db_query("DELETE FROM capabilities")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")

	_, err = rt.RunSource(context.Background(), `db_query("WITH x AS (SELECT 1) DELETE FROM repos")`, nil)
	require.Error(t, err)

	got, err := rt.RunSource(context.Background(), `db_query("SELECT COUNT(*) AS n FROM repos")[0]["n"] > 0`, nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestRunSource_WithoutEngine(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, WithLogger(quietLogger()))

	_, err := rt.RunSource(context.Background(), `capability("blob/add")`, nil)
	require.Error(t, err, "query globals need an engine")

	got, err := rt.RunSource(context.Background(), `1 + 2`, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, got)
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)

	got, err := rt.RunSource(context.Background(), `capability(target)["matched"]`, map[string]any{"target": "space/info"})
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestRunSource_LogGoesToLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	rt := NewRuntime(nil, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	_, err := rt.RunSource(context.Background(), `log.Info("hello from script")`, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello from script")
	assert.Contains(t, buf.String(), "source=script")
}

func TestRunSource_AssignmentYieldsNil(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil)

	got, err := rt.RunSource(context.Background(), `x := 1 + 2`, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "count.risor"), []byte(`len(capability_names())`), 0o644))

	rt := newTestRuntime(t, WithScriptsDir(dir))
	got, err := rt.RunScript(context.Background(), "count.risor", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got)
}

func TestRunScript_MissingFile(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, WithScriptsDir(t.TempDir()))

	_, err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rt := NewRuntime(nil, WithScriptsDir(dir))
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	content := `x := 42`
	mapFS := fstest.MapFS{
		"reports/owners.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime(nil, WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("reports/owners.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("/reports/owners.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}
	rt := NewRuntime(nil, WithRuntimeFS(mapFS))

	script := `
import lib_helpers
lib_helpers.greet("world")
`
	got, err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestImport_LocalImporter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0o644))
	rt := NewRuntime(nil, WithScriptsDir(dir))

	got, err := rt.RunSource(context.Background(), "import math_utils\nmath_utils.double(21)", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got)
}

func TestImport_HostGlobalsAvailableInImportedModules(t *testing.T) {
	t.Parallel()
	mapFS := fstest.MapFS{
		"owners.risor": &fstest.MapFile{Data: []byte(`
func definer(name) {
	return capability(name)["definitions"][0]["repo"]
}
`)},
	}
	rt := newTestRuntime(t, WithRuntimeFS(mapFS))

	got, err := rt.RunSource(context.Background(), "import owners\nowners.definer(\"blob/add\")", nil)
	require.NoError(t, err)
	assert.Equal(t, "upload-service", got)
}

func TestNewRuntime_Options(t *testing.T) {
	t.Parallel()
	rt := NewRuntime(nil, WithScriptsDir("/some/dir"))
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Nil(t, rt.query)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}
