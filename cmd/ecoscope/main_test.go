package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataDir = "../../testdata/storacha/data"

type cliRun struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, args ...string) cliRun {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return cliRun{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// envelope decodes a JSON-mode stdout, keeping the results raw.
func envelope(t *testing.T, out string) (CLIResult, map[string]any) {
	t.Helper()
	var raw struct {
		Command string         `json:"command"`
		Query   string         `json:"query"`
		Results map[string]any `json:"results"`
		Error   string         `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	return CLIResult{Command: raw.Command, Query: raw.Query, Error: raw.Error}, raw.Results
}

func TestRun_MissingCommand(t *testing.T) {
	t.Parallel()
	r := runCLI(t)
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "a command is required")
	assert.Contains(t, r.stderr, "Usage:")
	assert.Contains(t, r.stderr, "capability")

	// Flags alone are still a missing command.
	r = runCLI(t, "--data-dir", dataDir)
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "a command is required")
}

func TestRun_HelpFlag(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "--help")
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "Usage:")
	assert.Contains(t, r.stdout, "capability")
}

func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"capability without name", []string{"capability"}, "capability requires a capability name or --repo"},
		{"capability name and repo", []string{"capability", "blob/add", "--repo", "upload-api"}, "not both"},
		{"impact without target", []string{"impact"}, "impact requires a repo name or @package"},
		{"graph from without to", []string{"graph", "--from", "freeway"}, "both --from and --to"},
		{"graph without node", []string{"graph"}, "graph requires a node or --from/--to"},
		{"infra type and repo", []string{"infra", "piri", "--type", "s3"}, "not both"},
		{"status with argument", []string{"status", "extra"}, "status takes no arguments"},
		{"repo with two names", []string{"repo", "a", "b"}, "repo requires a repo name"},
		{"script without source", []string{"script"}, "script requires a script file or --eval"},
		{"unknown flag", []string{"status", "--bogus"}, "unknown flag: --bogus"},
		{"invalid format", []string{"status", "--data-dir", dataDir, "--format", "xml"}, "Format"},
		{"invalid color", []string{"status", "--data-dir", dataDir, "--color", "sometimes"}, "Color"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := runCLI(t, tt.args...)
			assert.Equal(t, 1, r.code)
			assert.Empty(t, r.stdout)
			assert.Contains(t, r.stderr, tt.want)
			assert.Contains(t, r.stderr, "Usage:")
		})
	}
}

func TestRun_UsageErrorBeforeLoading(t *testing.T) {
	t.Parallel()
	// The data dir does not exist; the argument error must win.
	r := runCLI(t, "capability", "--data-dir", t.TempDir()+"/missing")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "capability requires")
	assert.NotContains(t, r.stderr, "no datasets")
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "teleport")
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, `unknown command "teleport"`)
	assert.Contains(t, r.stderr, "Usage:")
}

func TestRun_NoDatasets(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	r := runCLI(t, "status", "--data-dir", dir)
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "no datasets found in "+dir)
	assert.NotContains(t, r.stderr, "Usage:")

	r = runCLI(t, "status", "--data-dir", dir, "--format", "json")
	assert.Equal(t, 1, r.code)
	env, _ := envelope(t, r.stdout)
	assert.Equal(t, "status", env.Command)
	assert.Contains(t, env.Error, "no datasets found")
}

func TestRun_CapabilityJSON(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "capability", "blob/add", "--data-dir", dataDir, "--format", "json")
	require.Equal(t, 0, r.code, r.stderr)

	env, res := envelope(t, r.stdout)
	assert.Equal(t, "capability", env.Command)
	assert.Equal(t, "blob/add", env.Query)
	assert.Empty(t, env.Error)
	assert.Equal(t, true, res["matched"])
	defs, ok := res["definitions"].([]any)
	require.True(t, ok)
	require.Len(t, defs, 1)
	assert.Equal(t, "upload-service", defs[0].(map[string]any)["repo"])
}

func TestRun_CapabilityText(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "capability", "blob/add", "--data-dir", dataDir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "## Capability: blob/add")
	assert.Contains(t, r.stdout, "### Defined in")
	assert.Contains(t, r.stdout, "upload-service")
	assert.Contains(t, r.stdout, "### Handled by")
	assert.Contains(t, r.stdout, "indexing-service")
	assert.NotContains(t, r.stdout, "\x1b[", "auto color is off for non-terminal writers")
}

func TestRun_NotFoundExitsZero(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "capability", "zzz/none", "--data-dir", dataDir)
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "No capability matching zzz/none found.")

	r = runCLI(t, "product", "warp", "drive", "--data-dir", dataDir)
	assert.Equal(t, 0, r.code)
	assert.Contains(t, r.stdout, "No product matching warp drive. Available:")
	assert.Contains(t, r.stdout, "- Upload Platform")
}

func TestRun_ProductJoinsArgs(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "product", "Gateway", "&", "Retrieval", "--data-dir", dataDir, "--format", "json")
	require.Equal(t, 0, r.code, r.stderr)
	env, res := envelope(t, r.stdout)
	assert.Equal(t, "Gateway & Retrieval", env.Query)
	assert.Equal(t, true, res["matched"])
}

func TestRun_GraphPaths(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "graph", "--from", "freeway", "--to", "piri", "--data-dir", dataDir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "## Path: freeway -> piri")
	assert.Contains(t, r.stdout, "Found 1 path(s):")
	assert.Contains(t, r.stdout, "Path 1: freeway --(")

	r = runCLI(t, "graph", "--from", "upload-api", "--to", "console", "--data-dir", dataDir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "Direct edges found:")

	r = runCLI(t, "graph", "--from", "piri", "--to", "console", "--data-dir", dataDir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "No path found between piri and console.")
}

func TestRun_Status(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "status", "--data-dir", dataDir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "## Datasets")
	assert.Contains(t, r.stdout, "product-map.json")
	assert.Contains(t, r.stdout, "loaded")
	assert.Contains(t, r.stdout, "### Records")
}

func TestRun_PartialLoadWarns(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "status", "--data-dir", "../../testdata/partial/data", "--format", "json")
	require.Equal(t, 0, r.code, r.stderr)
	_, res := envelope(t, r.stdout)
	docs, ok := res["documents"].([]any)
	require.True(t, ok)
	statuses := map[string]string{}
	for _, d := range docs {
		m := d.(map[string]any)
		statuses[m["name"].(string)] = m["status"].(string)
	}
	assert.Equal(t, "malformed", statuses["api-surface-map.json"])
	assert.Equal(t, "missing", statuses["infrastructure-map.json"])
	assert.Equal(t, "loaded", statuses["product-map.json"])
}

func TestRun_ColorAlways(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "repo", "piri", "--data-dir", dataDir, "--color", "always")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "\x1b[")

	r = runCLI(t, "repo", "piri", "--data-dir", dataDir, "--color", "never")
	require.Equal(t, 0, r.code, r.stderr)
	assert.NotContains(t, r.stdout, "\x1b[")
	assert.Contains(t, r.stdout, "## Repo: piri")
}

func TestRun_ScriptEval(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "script", "--eval", `capability("blob/add")["matched"]`, "--data-dir", dataDir, "--format", "json")
	require.Equal(t, 0, r.code, r.stderr)
	env, res := envelope(t, r.stdout)
	assert.Equal(t, "script", env.Command)
	assert.Equal(t, "<eval>", res["script"])
	assert.Equal(t, true, res["value"])
}

func TestRun_ScriptFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "owners.risor")
	src := "let r = repo(\"piri\")\nr[\"name\"]\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	r := runCLI(t, "script", path, "--data-dir", dataDir)
	require.Equal(t, 0, r.code, r.stderr)
	assert.Equal(t, "piri\n", r.stdout)
}

func TestRun_ScriptError(t *testing.T) {
	t.Parallel()
	r := runCLI(t, "script", "--eval", `capability(1)`, "--data-dir", dataDir)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "Error:")
	assert.NotContains(t, r.stderr, "Usage:")
}

func TestRun_ConfigFile(t *testing.T) {
	t.Parallel()
	abs, err := filepath.Abs(dataDir)
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "ecoscope.toml")
	cfg := "[data]\ndir = " + quote(abs) + "\nignore_repos = [\"piri\"]\n\n[output]\nformat = \"json\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	r := runCLI(t, "capability", "blob/allocate", "--config", cfgPath)
	require.Equal(t, 0, r.code, r.stderr)
	_, res := envelope(t, r.stdout)
	assert.Equal(t, false, res["matched"], "capabilities of ignored repos are dropped")

	// Flags override the file.
	r = runCLI(t, "capability", "blob/allocate", "--config", cfgPath, "--format", "text")
	require.Equal(t, 0, r.code, r.stderr)
	assert.Contains(t, r.stdout, "No capability matching blob/allocate found.")
}

func TestRun_SameDocumentTwiceRejected(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "ecoscope.toml")
	cfg := "[data]\ndir = " + quote(dataDir) + "\ninfrastructure = \"product-map.json\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	r := runCLI(t, "status", "--config", cfgPath)
	assert.Equal(t, 1, r.code)
	assert.Empty(t, r.stdout)
	assert.Contains(t, r.stderr, "is also configured as Product")
}

func TestRun_BadConfigFile(t *testing.T) {
	t.Parallel()
	cfgPath := filepath.Join(t.TempDir(), "ecoscope.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[data]\nunknown_key = 1\n"), 0o644))

	r := runCLI(t, "status", "--config", cfgPath)
	assert.Equal(t, 1, r.code)
	assert.Contains(t, r.stderr, "unknown_key")
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
