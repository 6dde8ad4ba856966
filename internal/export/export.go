// Package export renders a notes directory into a mirror directory in
// which every reference tag has been rewritten into a link.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/starford/zklink/internal/checksum"
	"github.com/starford/zklink/internal/reference"
	"github.com/starford/zklink/internal/rewriter"
	"github.com/starford/zklink/internal/storage"
)

// Summary counts the work done by one export pass.
type Summary struct {
	Files        int
	Written      int
	Removed      int
	Replacements int
	Unresolved   int
}

// Exporter copies notes from src to dst through a rewriter.
//
// It remembers the checksum of each source file it has rendered so
// repeated passes in one process skip unchanged notes. Search results are
// never remembered: a changed note is resolved from scratch.
type Exporter struct {
	src      storage.Provider
	dst      storage.Provider
	rw       *rewriter.Rewriter
	logger   *slog.Logger
	rendered map[string]string
}

// New creates an Exporter.
func New(src, dst storage.Provider, rw *rewriter.Rewriter, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		src:      src,
		dst:      dst,
		rw:       rw,
		logger:   logger,
		rendered: make(map[string]string),
	}
}

// All exports every note and removes mirrored notes whose source is gone.
func (e *Exporter) All(ctx context.Context) (Summary, error) {
	var sum Summary

	metas, err := e.src.List("")
	if err != nil {
		return sum, fmt.Errorf("export: list source: %w", err)
	}

	present := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		present[m.Path] = struct{}{}
		sum.Files++
		if e.rendered[m.Path] == m.Checksum {
			continue
		}
		stats, written, err := e.File(ctx, m.Path)
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			e.logger.Warn("export: file failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if written {
			sum.Written++
			sum.Replacements += stats.Replacements
			sum.Unresolved += stats.Unresolved
		}
	}

	mirrored, err := e.dst.List("")
	if err != nil {
		return sum, fmt.Errorf("export: list destination: %w", err)
	}
	for _, m := range mirrored {
		if _, ok := present[m.Path]; ok {
			continue
		}
		if err := e.Remove(m.Path); err != nil {
			e.logger.Warn("export: remove stale failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		sum.Removed++
	}

	return sum, nil
}

// File exports a single note. It reports false when the note is
// unchanged since it was last exported.
func (e *Exporter) File(ctx context.Context, path string) (rewriter.Stats, bool, error) {
	data, err := e.src.Read(path)
	if err != nil {
		return rewriter.Stats{}, false, err
	}
	cs := checksum.Sum(data)
	if e.rendered[path] == cs {
		return rewriter.Stats{}, false, nil
	}

	text := string(data)
	out, stats, err := e.rw.RewriteString(ctx, text)
	if err != nil {
		return stats, false, fmt.Errorf("export: rewrite %s: %w", path, err)
	}
	if err := e.dst.Write(path, []byte(out)); err != nil {
		return stats, false, err
	}
	e.rendered[path] = cs

	e.logger.Debug("export: written",
		slog.String("path", path),
		slog.Int("references", len(reference.Identifiers(text))),
		slog.Int("replacements", stats.Replacements),
		slog.Int("unresolved", stats.Unresolved))
	return stats, true, nil
}

// Remove deletes the mirrored copy of a note. A missing copy is not an
// error.
func (e *Exporter) Remove(path string) error {
	delete(e.rendered, path)
	if err := e.dst.Delete(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
