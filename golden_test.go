package ecoscope

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden test format. Each testdata/<scenario>/ directory holds the scanner
// documents under data/ and the expected answers in golden.json.
type goldenFile struct {
	Documents    map[string]string `json:"documents"`
	Capabilities []goldenCap       `json:"capabilities,omitempty"`
	Impacts      []goldenImpact    `json:"impacts,omitempty"`
	Paths        []goldenPath      `json:"paths,omitempty"`
	Products     []goldenProduct   `json:"products,omitempty"`
	InfraTypes   []goldenInfraType `json:"infra_types,omitempty"`
}

type goldenCap struct {
	Name      string   `json:"name"`
	DefinedIn []string `json:"defined_in"`
	HandledIn []string `json:"handled_in"`
	InvokedBy []string `json:"invoked_by"`
}

type goldenImpact struct {
	Target     string   `json:"target"`
	NotFound   bool     `json:"not_found"`
	Dependents []string `json:"dependents"`
}

type goldenPath struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Found  bool       `json:"found"`
	Paths  [][]string `json:"paths"`
	Direct int        `json:"direct"`
}

type goldenProduct struct {
	Query   string   `json:"query"`
	Product string   `json:"product"`
	Members []string `json:"members"`
}

type goldenInfraType struct {
	Type       string   `json:"type"`
	Categories []string `json:"categories"`
	Repos      []string `json:"repos"`
}

// TestGolden walks testdata/ and runs every scenario that has both data/
// and golden.json.
func TestGolden(t *testing.T) {
	scenarios, err := os.ReadDir("testdata")
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, sc := range scenarios {
		if !sc.IsDir() {
			continue
		}
		dir := filepath.Join("testdata", sc.Name())
		goldenPath := filepath.Join(dir, "golden.json")
		dataDir := filepath.Join(dir, "data")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		if _, err := os.Stat(dataDir); err != nil {
			continue
		}

		t.Run(sc.Name(), func(t *testing.T) {
			t.Parallel()
			runGoldenTest(t, dataDir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, dataDir, goldenPath string) {
	t.Helper()

	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(data, &golden))

	e, err := New(context.Background(), WithDataDir(dataDir), WithLogger(quietLogger()))
	require.NoError(t, err)
	defer e.Close()
	q := e.Query()

	t.Run("documents", func(t *testing.T) {
		got := make(map[string]string)
		for _, d := range q.Status().Documents {
			got[d.Name] = d.Status
		}
		assert.Equal(t, golden.Documents, got)
	})

	if len(golden.Capabilities) > 0 {
		t.Run("capabilities", func(t *testing.T) {
			verifyCapabilities(t, q, golden.Capabilities)
		})
	}
	if len(golden.Impacts) > 0 {
		t.Run("impacts", func(t *testing.T) {
			verifyImpacts(t, q, golden.Impacts)
		})
	}
	if len(golden.Paths) > 0 {
		t.Run("paths", func(t *testing.T) {
			verifyPaths(t, q, golden.Paths)
		})
	}
	if len(golden.Products) > 0 {
		t.Run("products", func(t *testing.T) {
			verifyProducts(t, q, golden.Products)
		})
	}
	if len(golden.InfraTypes) > 0 {
		t.Run("infra_types", func(t *testing.T) {
			verifyInfraTypes(t, q, golden.InfraTypes)
		})
	}
}

func verifyCapabilities(t *testing.T, q *QueryBuilder, expected []goldenCap) {
	t.Helper()
	for _, exp := range expected {
		res := q.Capability(exp.Name)
		if len(exp.DefinedIn) == 0 {
			assert.False(t, res.Matched, exp.Name)
			continue
		}
		require.True(t, res.Matched, exp.Name)

		var defined, handled, invoked []string
		for _, d := range res.Definitions {
			defined = append(defined, d.Repo)
		}
		for _, h := range res.Handlers {
			handled = append(handled, h.Repo)
		}
		for _, e := range res.Edges {
			invoked = append(invoked, e.From)
		}
		assert.Equal(t, exp.DefinedIn, defined, "%s: defined in", exp.Name)
		assert.Equal(t, exp.HandledIn, handled, "%s: handled in", exp.Name)
		assert.Equal(t, exp.InvokedBy, invoked, "%s: invoked by", exp.Name)
	}
}

func verifyImpacts(t *testing.T, q *QueryBuilder, expected []goldenImpact) {
	t.Helper()
	for _, exp := range expected {
		res := q.Impact(exp.Target)
		var dependents []RepoSummary
		if res.Package != nil {
			assert.Equal(t, exp.NotFound, res.Package.NotFound, exp.Target)
			dependents = res.Package.Dependents
		} else {
			dependents = res.Repo.Dependents
		}
		var names []string
		for _, d := range dependents {
			names = append(names, d.Name)
		}
		assert.Equal(t, exp.Dependents, names, "%s: dependents", exp.Target)
	}
}

func verifyPaths(t *testing.T, q *QueryBuilder, expected []goldenPath) {
	t.Helper()
	for _, exp := range expected {
		res := q.Path(exp.From, exp.To)
		assert.Equal(t, exp.Found, res.Found, "%s -> %s", exp.From, exp.To)

		var paths [][]string
		for _, p := range res.Paths {
			paths = append(paths, p.Nodes())
		}
		assert.Equal(t, exp.Paths, paths, "%s -> %s", exp.From, exp.To)
		assert.Len(t, res.Direct, exp.Direct, "%s -> %s: direct", exp.From, exp.To)
	}
}

func verifyProducts(t *testing.T, q *QueryBuilder, expected []goldenProduct) {
	t.Helper()
	for _, exp := range expected {
		res := q.Product(exp.Query)
		if exp.Product == "" {
			assert.False(t, res.Matched, exp.Query)
			assert.NotEmpty(t, res.Available, exp.Query)
			continue
		}
		require.True(t, res.Matched, exp.Query)
		assert.Equal(t, exp.Product, res.Product.Name)
		var members []string
		for _, m := range res.Members {
			members = append(members, m.Name)
		}
		assert.Equal(t, exp.Members, members, exp.Query)
	}
}

func verifyInfraTypes(t *testing.T, q *QueryBuilder, expected []goldenInfraType) {
	t.Helper()
	for _, exp := range expected {
		res := q.InfraByType(exp.Type)
		var cats, repos []string
		for _, c := range res.Categories {
			cats = append(cats, c.Name)
		}
		for _, r := range res.Repos {
			repos = append(repos, r.Repo)
		}
		assert.Equal(t, exp.Categories, cats, "%s: categories", exp.Type)
		assert.Equal(t, exp.Repos, repos, "%s: repos", exp.Type)
	}
}
