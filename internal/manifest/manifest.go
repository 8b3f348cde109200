// Package manifest verifies extracted segments and writes the ffmpeg
// concat-demuxer list that drives reassembly.
package manifest

import (
	"cmp"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

// artifactRe matches segment artifacts: digits, a dot, an extension.
var artifactRe = regexp.MustCompile(`^(\d+)\.([A-Za-z0-9]+)$`)

// Entry is one verified artifact.
type Entry struct {
	Ordinal  uint
	Path     string        // absolute
	Duration time.Duration // as reported by ffprobe, zero when unknown
}

// Manifest is the ordered list written for the concat demuxer.
type Manifest struct {
	Path    string
	Entries []Entry
}

// Len returns the number of entries.
func (m Manifest) Len() int { return len(m.Entries) }

// Duration returns the summed duration of all entries.
func (m Manifest) Duration() time.Duration {
	var total time.Duration
	for _, e := range m.Entries {
		total += e.Duration
	}
	return total
}

// Encode renders the manifest in the concat demuxer's grammar:
// one "file '<path>'" line per entry.
func (m Manifest) Encode() []byte {
	var b strings.Builder
	for _, e := range m.Entries {
		b.WriteString("file ")
		b.WriteString(quote(e.Path))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// quote wraps s in single quotes, escaping embedded quotes as '\''.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Builder probes the artifacts in a workspace and writes the manifest.
type Builder struct {
	path   string
	ext    string
	only   map[uint]bool
	prober prober
	fs     fileSystem
	logger hclog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithExtension restricts artifacts to one extension (without dot).
func WithExtension(ext string) Option {
	return func(b *Builder) { b.ext = strings.TrimPrefix(ext, ".") }
}

// WithOrdinals restricts the manifest to the given ordinals, so leftovers
// from an earlier run in a reused workspace are ignored.
func WithOrdinals(ordinals []uint) Option {
	return func(b *Builder) {
		b.only = make(map[uint]bool, len(ordinals))
		for _, n := range ordinals {
			b.only[n] = true
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithFileSystem sets the filesystem (for testing).
func WithFileSystem(fs fileSystem) Option {
	return func(b *Builder) { b.fs = fs }
}

// NewBuilder creates a Builder that writes the manifest to path and
// verifies artifacts with p.
func NewBuilder(path string, p prober, opts ...Option) *Builder {
	b := &Builder{
		path:   path,
		prober: p,
		fs:     osFileSystem{},
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build lists the artifacts of dir in ascending ordinal, probes each one
// sequentially, and writes the manifest from those that pass. Files that
// ffprobe rejects are left out. With no valid entry nothing is written and
// ErrEmptyManifest is returned.
func (b *Builder) Build(ctx context.Context, dir string) (Manifest, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return Manifest{}, fmt.Errorf("resolve workspace path: %w", err)
	}
	manifestPath, err := filepath.Abs(b.path)
	if err != nil {
		return Manifest{}, fmt.Errorf("resolve manifest path: %w", err)
	}

	candidates, err := b.artifacts(absDir)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{Path: manifestPath}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		res, err := b.prober.Probe(ctx, c.Path)
		if err != nil {
			if ctx.Err() != nil {
				return Manifest{}, ctx.Err()
			}
			b.logger.Debug("excluding artifact", "path", c.Path, "error", err)
			continue
		}
		c.Duration = res.Duration()
		m.Entries = append(m.Entries, c)
	}

	b.logger.Debug("verification finished", "artifacts", len(candidates), "valid", len(m.Entries))
	if len(m.Entries) == 0 {
		return Manifest{}, ErrEmptyManifest
	}

	if err := b.fs.WriteFile(manifestPath, m.Encode(), 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// artifacts returns the segment files of dir sorted by ordinal.
func (b *Builder) artifacts(dir string) ([]Entry, error) {
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list workspace: %w", err)
	}

	var out []Entry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := artifactRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if b.ext != "" && !strings.EqualFold(m[2], b.ext) {
			continue
		}
		n, err := strconv.ParseUint(m[1], 10, 0)
		if err != nil || n == 0 {
			continue
		}
		if b.only != nil && !b.only[uint(n)] {
			continue
		}
		out = append(out, Entry{Ordinal: uint(n), Path: filepath.Join(dir, e.Name())})
	}

	slices.SortFunc(out, func(a, b Entry) int { return cmp.Compare(a.Ordinal, b.Ordinal) })
	return out, nil
}
