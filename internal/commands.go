package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/zklink/internal/apperr"
	"github.com/starford/zklink/internal/export"
	"github.com/starford/zklink/internal/reference"
	"github.com/starford/zklink/internal/storage"
)

// Find prints the notes whose file name matches glob.
func Find(ctx context.Context, glob string, opts ...Option) error {
	app, _, err := setup(opts...)
	if err != nil {
		return err
	}
	return printLines(app.stdout, app.searcher.FindFilesByGlob(ctx, glob))
}

// Grep prints every note line matching pattern as path:line:text, files
// in path order.
func Grep(ctx context.Context, pattern string, opts ...Option) error {
	app, _, err := setup(opts...)
	if err != nil {
		return err
	}
	matches := app.searcher.FindLinesByContent(ctx, pattern)

	var out []string
	for _, path := range slices.Sorted(maps.Keys(matches)) {
		for _, m := range matches[path] {
			out = append(out, fmt.Sprintf("%s:%d:%s", path, m.Line, m.Text))
		}
	}
	return printLines(app.stdout, out)
}

// Backlinks prints the notes whose content mentions identifier.
func Backlinks(ctx context.Context, identifier string, opts ...Option) error {
	if !reference.ValidIdentifier(identifier) {
		return fmt.Errorf("%w: %q must be %d digits", apperr.ErrInvalidIdentifier, identifier, reference.IdentifierLen)
	}
	app, _, err := setup(opts...)
	if err != nil {
		return err
	}
	return printLines(app.stdout, app.searcher.FindFilesByContent(ctx, identifier))
}

// ExportOptions selects the directories for Export.
type ExportOptions struct {
	Source string
	Out    string
	Watch  bool
}

// Export mirrors the notes under Source into Out with references
// rewritten. With Watch it keeps the mirror current until interrupted.
func Export(ctx context.Context, eo ExportOptions, opts ...Option) error {
	app, logger, err := setup(opts...)
	if err != nil {
		return err
	}

	if err := checkDisjoint(eo.Source, eo.Out); err != nil {
		return err
	}
	if err := os.MkdirAll(eo.Out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	src, err := storage.NewFS(eo.Source)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	dst, err := storage.NewFS(eo.Out)
	if err != nil {
		return fmt.Errorf("init output: %w", err)
	}

	exp := export.New(src, dst, app.rewriter(logger), logger)

	sum, err := exp.All(ctx)
	if err != nil {
		return err
	}
	logger.Info("Export finished",
		slog.String("source", src.Root()),
		slog.String("out", dst.Root()),
		slog.Int("files", sum.Files),
		slog.Int("written", sum.Written),
		slog.Int("removed", sum.Removed),
		slog.Int("replacements", sum.Replacements),
		slog.Int("unresolved", sum.Unresolved))
	if _, err := fmt.Fprintf(app.stdout, "exported %d of %d notes, %d links (%d unresolved), %d removed\n",
		sum.Written, sum.Files, sum.Replacements, sum.Unresolved, sum.Removed); err != nil {
		return err
	}

	if !eo.Watch {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return exp.Watch(watchCtx, func(kind, path string) {
			logger.Info("Mirror updated", slog.String("kind", kind), slog.String("path", path))
		})
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-watchCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Watch error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// checkDisjoint rejects source and output directories that contain one
// another: the mirror would be exported into itself, or stale-file
// removal would reach the source notes.
func checkDisjoint(source, out string) error {
	a, err := filepath.Abs(source)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}
	b, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("resolve output: %w", err)
	}
	if within(a, b) || within(b, a) {
		return fmt.Errorf("source %s and output %s must not contain one another", a, b)
	}
	return nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func printLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
