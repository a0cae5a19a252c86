// Package dataset reads the three scanner documents (API surface,
// infrastructure, product map) and normalizes them into store records.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/viant/afs"

	"github.com/jward/ecoscope/internal/config"
	"github.com/jward/ecoscope/internal/store"
)

// Document statuses recorded in store.Document.Status.
const (
	StatusLoaded    = "loaded"
	StatusMissing   = "missing"
	StatusMalformed = "malformed"
)

// Options configures a Loader. Zero-valued document names fall back to the
// config defaults.
type Options struct {
	Dir            string
	APISurface     string
	Infrastructure string
	Product        string
	Taxonomy       *config.Taxonomy
	Ignore         *config.IgnoreSet
	Logger         *slog.Logger
}

// Loader reads and normalizes the documents. It performs no network access:
// only local paths and file:// URLs are read.
type Loader struct {
	fs     afs.Service
	opts   Options
	logger *slog.Logger
}

func NewLoader(opts Options) *Loader {
	if opts.APISurface == "" {
		opts.APISurface = config.DefaultAPISurface
	}
	if opts.Infrastructure == "" {
		opts.Infrastructure = config.DefaultInfrastructure
	}
	if opts.Product == "" {
		opts.Product = config.DefaultProduct
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{fs: afs.New(), opts: opts, logger: logger}
}

// Load reads all three documents into one snapshot. A missing or undecodable
// document contributes no records and is reported through the snapshot's
// Documents; only when no document is usable does Load fail, with
// ErrNoDatasets.
func (l *Loader) Load(ctx context.Context) (*store.Snapshot, error) {
	snap := &store.Snapshot{}

	docs := []struct {
		name  string
		apply func(*normalizer, Object)
	}{
		{l.opts.APISurface, (*normalizer).api},
		{l.opts.Infrastructure, (*normalizer).infra},
		{l.opts.Product, func(n *normalizer, top Object) { n.product(top, l.opts.Taxonomy) }},
	}

	usable := 0
	seen := make(map[string]string, len(docs))
	for _, d := range docs {
		var status store.Document
		if prev, dup := l.alreadyRead(seen, d.name); dup {
			err := malformed(d.name, "file already read as "+prev, nil)
			status = store.Document{Name: d.name, Status: StatusMalformed, Error: err.Error()}
			l.logger.Warn("dataset configured twice, continuing without it", "document", d.name, "error", err)
		} else {
			status = l.loadDocument(ctx, d.name, snap, d.apply)
		}
		if status.Status == StatusLoaded {
			usable++
		}
		snap.Documents = append(snap.Documents, status)
	}
	if usable == 0 {
		return nil, ErrNoDatasets
	}
	return snap, nil
}

// alreadyRead reports whether name resolves to a file an earlier document
// slot read, and which one. Unresolvable names are left to loadDocument.
func (l *Loader) alreadyRead(seen map[string]string, name string) (string, bool) {
	location, err := l.location(name)
	if err != nil {
		return "", false
	}
	key := strings.TrimPrefix(location, "file://")
	if prev, ok := seen[key]; ok {
		return prev, true
	}
	seen[key] = name
	return "", false
}

func (l *Loader) loadDocument(ctx context.Context, name string, snap *store.Snapshot, apply func(*normalizer, Object)) store.Document {
	status := store.Document{Name: name}

	data, err := l.read(ctx, name)
	if err != nil {
		status.Status = StatusMissing
		if IsCode(err, CodeMalformedRecord) {
			status.Status = StatusMalformed
		}
		status.Error = err.Error()
		l.logger.Warn("dataset unavailable, continuing without it", "document", name, "error", err)
		return status
	}

	if fp, err := store.Fingerprint(data); err == nil {
		status.Fingerprint = fp
	}

	var top Object
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		if err == nil {
			err = fmt.Errorf("top-level value is null")
		}
		derr := malformed(name, "cannot decode document", err)
		status.Status = StatusMalformed
		status.Error = derr.Error()
		l.logger.Warn("dataset malformed, continuing without it", "document", name, "error", derr)
		return status
	}

	n := &normalizer{doc: name, snap: snap, ignore: l.opts.Ignore, logger: l.logger}
	apply(n, top)
	if n.malformed > 0 {
		l.logger.Warn("records with missing fields replaced by placeholders",
			"document", name, "code", CodeMalformedRecord, "count", n.malformed)
	}
	status.Status = StatusLoaded
	status.Records = n.records
	l.logger.Debug("dataset loaded", "document", name, "records", n.records, "fingerprint", status.Fingerprint)
	return status
}

func (l *Loader) read(ctx context.Context, name string) ([]byte, error) {
	location, err := l.location(name)
	if err != nil {
		return nil, malformed(name, "unsupported location", err)
	}
	ok, err := l.fs.Exists(ctx, location)
	if err != nil {
		return nil, missing(name, "cannot stat "+location, err)
	}
	if !ok {
		return nil, missing(name, "not found at "+location, nil)
	}
	data, err := l.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, missing(name, "cannot read "+location, err)
	}
	return data, nil
}

// location resolves a document name against the data directory. Absolute
// paths and file:// URLs are used as given; any other URL scheme is refused.
func (l *Loader) location(name string) (string, error) {
	if scheme, rest, ok := strings.Cut(name, "://"); ok {
		if scheme != "file" {
			return "", fmt.Errorf("scheme %q is not a local file", scheme)
		}
		return "file://" + rest, nil
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir := l.opts.Dir
	if scheme, rest, ok := strings.Cut(dir, "://"); ok {
		if scheme != "file" {
			return "", fmt.Errorf("scheme %q is not a local file", scheme)
		}
		dir = rest
	}
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	return path, nil
}
