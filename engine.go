package ecoscope

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jward/ecoscope/internal/config"
	"github.com/jward/ecoscope/internal/dataset"
	"github.com/jward/ecoscope/internal/store"
)

// ErrNoDatasets is returned by New when none of the three documents could be
// loaded.
var ErrNoDatasets = dataset.ErrNoDatasets

// Engine owns one invocation's snapshot: the normalized records in an
// in-memory SQLite store and the lookup index built from them. Nothing is
// written to disk and nothing outlives Close.
type Engine struct {
	store  *store.Store
	index  *index
	logger *slog.Logger
}

type settings struct {
	dataDir        string
	apiSurface     string
	infrastructure string
	product        string
	taxonomy       *config.Taxonomy
	ignore         []string
	logger         *slog.Logger
}

// Option configures an Engine.
type Option func(*settings)

// WithDataDir sets the directory the document names are resolved against.
// Defaults to "data".
func WithDataDir(dir string) Option {
	return func(s *settings) {
		s.dataDir = dir
	}
}

// WithDocuments overrides the document names. Empty names keep their
// defaults.
func WithDocuments(apiSurface, infrastructure, product string) Option {
	return func(s *settings) {
		if apiSurface != "" {
			s.apiSurface = apiSurface
		}
		if infrastructure != "" {
			s.infrastructure = infrastructure
		}
		if product != "" {
			s.product = product
		}
	}
}

// WithTaxonomy regroups products according to tax instead of the product
// document's own grouping.
func WithTaxonomy(tax *Taxonomy) Option {
	return func(s *settings) {
		s.taxonomy = tax
	}
}

// WithIgnore drops repos whose names match any of the glob patterns.
func WithIgnore(patterns ...string) Option {
	return func(s *settings) {
		s.ignore = append(s.ignore, patterns...)
	}
}

// WithLogger sets the logger for load warnings. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// New loads the datasets and builds the index. Missing or malformed
// documents degrade to empty collections with a logged warning; New fails
// only when no document is usable (ErrNoDatasets) or the snapshot cannot be
// built.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	s := settings{
		dataDir:        "data",
		apiSurface:     config.DefaultAPISurface,
		infrastructure: config.DefaultInfrastructure,
		product:        config.DefaultProduct,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	ignore, err := config.CompileIgnore(s.ignore)
	if err != nil {
		return nil, fmt.Errorf("ecoscope: %w", err)
	}
	if !ignore.Empty() {
		s.logger.Debug("ignoring repos", "patterns", ignore.Patterns())
	}

	loader := dataset.NewLoader(dataset.Options{
		Dir:            s.dataDir,
		APISurface:     s.apiSurface,
		Infrastructure: s.infrastructure,
		Product:        s.product,
		Taxonomy:       s.taxonomy,
		Ignore:         ignore,
		Logger:         s.logger,
	})
	snap, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("ecoscope: load datasets: %w", err)
	}
	return newEngine(snap, s.logger)
}

// NewFromSnapshot builds an Engine from already normalized records, skipping
// the document loader.
func NewFromSnapshot(snap *Snapshot, opts ...Option) (*Engine, error) {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return newEngine(snap, s.logger)
}

func newEngine(snap *Snapshot, logger *slog.Logger) (*Engine, error) {
	st, err := store.NewStore()
	if err != nil {
		return nil, fmt.Errorf("ecoscope: create store: %w", err)
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, fmt.Errorf("ecoscope: migrate: %w", err)
	}
	if err := st.CommitSnapshot(snap); err != nil {
		st.Close()
		return nil, fmt.Errorf("ecoscope: %w", err)
	}
	idx, err := buildIndex(st)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("ecoscope: %w", err)
	}
	logger.Debug("index built", "capabilities", len(idx.capNames), "edges", len(idx.edges),
		"repos", len(idx.repoNames), "products", len(idx.productNames))
	return &Engine{store: st, index: idx, logger: logger}, nil
}

// Query returns a QueryBuilder over the Engine's index.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{idx: e.index}
}

// Store returns the underlying snapshot store for read-only SQL access.
func (e *Engine) Store() *Store {
	return e.store
}

// Close discards the snapshot.
func (e *Engine) Close() error {
	return e.store.Close()
}
