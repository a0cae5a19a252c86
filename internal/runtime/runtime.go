package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/ecoscope"
)

// Runtime embeds a Risor VM and exposes the ecosystem queries and read-only
// snapshot SQL to user scripts. Scripts compose queries that the CLI does
// not offer directly, e.g. walking every capability a product defines.
type Runtime struct {
	query      *ecoscope.QueryBuilder
	store      *ecoscope.Store
	logger     *slog.Logger
	scriptsDir string
	fsys       fs.FS
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts and imports from an
// fs.FS instead of from disk.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithScriptsDir sets the directory relative script paths and import
// statements resolve against.
func WithScriptsDir(dir string) RuntimeOption {
	return func(r *Runtime) {
		r.scriptsDir = dir
	}
}

// WithLogger sets the logger behind the script "log" global.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime over e's index and store. A nil Engine yields
// a Runtime with only the log global, which is enough for plain scripts.
func NewRuntime(e *ecoscope.Engine, opts ...RuntimeOption) *Runtime {
	r := &Runtime{logger: slog.Default()}
	if e != nil {
		r.query = e.Query()
		r.store = e.Store()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals plus
// any extra globals provided by the caller. It returns the value of the
// script's last expression converted to Go.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) (any, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) (any, error) {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) (any, error) {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return nil, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if result == nil || result == object.Nil {
		return nil, nil
	}
	return result.Interface(), nil
}

// buildImporter returns a Risor importer for the configured script source,
// or nil if neither an fs.FS nor a scripts directory is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code. With an fs.FS
// configured the path is relative within it; otherwise relative paths are
// joined to the scripts directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) && r.scriptsDir != "" {
		fullPath = filepath.Join(r.scriptsDir, path)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to scripts.
func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger}),
	}

	if r.query != nil {
		q := r.query
		globals["capability"] = stringQuery("capability", func(s string) any { return q.Capability(s) })
		globals["capability_repo"] = stringQuery("capability_repo", func(s string) any { return q.CapabilityByRepo(s) })
		globals["impact"] = stringQuery("impact", func(s string) any { return q.Impact(s) })
		globals["infra"] = stringQuery("infra", func(s string) any { return q.Infra(s) })
		globals["infra_type"] = stringQuery("infra_type", func(s string) any { return q.InfraByType(s) })
		globals["graph"] = stringQuery("graph", func(s string) any { return q.Graph(s) })
		globals["product"] = stringQuery("product", func(s string) any { return q.Product(s) })
		globals["repo"] = stringQuery("repo", func(s string) any { return q.Repo(s) })
		globals["surface"] = stringQuery("surface", func(s string) any { return q.Surface(s) })
		globals["path"] = makePathFn(q)
		globals["status"] = listing("status", func() any { return q.Status() })
		globals["repos"] = listing("repos", func() any { return q.Repos() })
		globals["products"] = listing("products", func() any { return q.Products() })
		globals["capability_names"] = listing("capability_names", func() any { return q.CapabilityNames() })
	}
	if r.store != nil {
		globals["db_query"] = makeDBQueryFn(r.store)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
