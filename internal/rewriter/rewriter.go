// Package rewriter replaces reference tags in text with Markdown links to
// the notes they name.
package rewriter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/starford/zklink/internal/reference"
)

// DefaultUnresolvedMarker is appended to the display text of references
// that resolve to no file.
const DefaultUnresolvedMarker = " - no link"

// Finder resolves a file-name glob to matching paths. The first path wins.
type Finder interface {
	FindFilesByGlob(ctx context.Context, glob string) []string
}

// Rewriter resolves and splices reference tags, one line at a time.
type Rewriter struct {
	finder Finder
	marker string
	logger *slog.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

// WithUnresolvedMarker overrides DefaultUnresolvedMarker.
func WithUnresolvedMarker(marker string) Option {
	return func(r *Rewriter) {
		r.marker = marker
	}
}

// WithLogger sets the logger used for per-reference diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Rewriter) {
		r.logger = logger
	}
}

// New creates a Rewriter backed by finder.
func New(finder Finder, opts ...Option) *Rewriter {
	r := &Rewriter{
		finder: finder,
		marker: DefaultUnresolvedMarker,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the note for tag and builds its link. It never fails:
// a tag without a matching file yields an unresolved link.
func (r *Rewriter) Resolve(ctx context.Context, tag reference.Tag) Link {
	files := r.finder.FindFilesByGlob(ctx, tag.Glob())
	if len(files) == 0 {
		r.logger.Debug("rewriter: unresolved reference", slog.String("identifier", tag.Identifier))
		return Link{Display: tag.DisplayText() + r.marker}
	}
	return Link{Display: tag.DisplayText(), Target: EscapePath(files[0])}
}

// LineResult is the outcome of rewriting one line.
type LineResult struct {
	Text         string
	Replacements int
	Unresolved   int
}

type state int

const (
	scanning state = iota
	resolving
	splicing
	done
)

// RewriteLine replaces every tag in line. After each splice the line is
// scanned again from its start; rewritten links never match the tag
// pattern, and the number of splices is capped at the number of tags in
// the original line.
func (r *Rewriter) RewriteLine(ctx context.Context, line string) LineResult {
	res := LineResult{Text: line}
	limit := reference.Count(line)

	var (
		st   = scanning
		tag  reference.Tag
		link Link
	)
	for st != done {
		switch st {
		case scanning:
			next, ok := reference.Find(res.Text)
			switch {
			case !ok:
				st = done
			case res.Replacements >= limit:
				r.logger.Warn("rewriter: rewritten text matched again, stopping",
					slog.String("identifier", next.Identifier))
				st = done
			default:
				tag = next
				st = resolving
			}

		case resolving:
			link = r.Resolve(ctx, tag)
			if link.Target == "" {
				res.Unresolved++
			}
			st = splicing

		case splicing:
			res.Text = res.Text[:tag.Start] + link.String() + res.Text[tag.End:]
			res.Replacements++
			st = scanning
		}
	}
	return res
}

// Stats summarises a stream rewrite.
type Stats struct {
	Lines        int
	Replacements int
	Unresolved   int
}

func (s *Stats) add(res LineResult) {
	s.Lines++
	s.Replacements += res.Replacements
	s.Unresolved += res.Unresolved
}

// Rewrite copies in to out line by line, rewriting tags. Line terminators
// are preserved as read. Output is flushed whenever no further input is
// buffered so interactive use sees each line immediately. Rewrite stops
// between lines once ctx is cancelled.
func (r *Rewriter) Rewrite(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	var stats Stats
	br := bufio.NewReader(in)
	bw := bufio.NewWriter(out)

	for {
		if err := ctx.Err(); err != nil {
			_ = bw.Flush()
			return stats, err
		}

		line, readErr := br.ReadString('\n')
		if len(line) > 0 {
			body, eol := splitEOL(line)
			res := r.RewriteLine(ctx, body)
			stats.add(res)
			if _, err := bw.WriteString(res.Text + eol); err != nil {
				return stats, fmt.Errorf("rewriter: write: %w", err)
			}
			if br.Buffered() == 0 {
				if err := bw.Flush(); err != nil {
					return stats, fmt.Errorf("rewriter: flush: %w", err)
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			_ = bw.Flush()
			return stats, fmt.Errorf("rewriter: read: %w", readErr)
		}
	}

	if err := bw.Flush(); err != nil {
		return stats, fmt.Errorf("rewriter: flush: %w", err)
	}
	return stats, nil
}

// RewriteString rewrites a whole text, as used for files.
func (r *Rewriter) RewriteString(ctx context.Context, text string) (string, Stats, error) {
	var b strings.Builder
	stats, err := r.Rewrite(ctx, strings.NewReader(text), &b)
	return b.String(), stats, err
}

func splitEOL(line string) (string, string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	}
	return line, ""
}
