// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/zklink/internal/rewriter"
	"github.com/starford/zklink/internal/search"
)

// Run rewrites reference tags read from the input stream and writes the
// result to the output stream.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts...)
	if err != nil {
		return err
	}

	rw := app.rewriter(logger)
	stats, err := rw.Rewrite(ctx, app.stdin, app.stdout)
	logger.Debug("Rewrite finished",
		slog.Int("lines", stats.Lines),
		slog.Int("replacements", stats.Replacements),
		slog.Int("unresolved", stats.Unresolved))
	if err != nil {
		return fmt.Errorf("rewrite: %w", err)
	}
	return nil
}

// setup applies options, fills in defaults and builds the logger and the
// search gateway.
func setup(opts ...Option) (*application, *slog.Logger, error) {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}
	if app.stdin == nil {
		app.stdin = os.Stdin
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}

	cfg := app.config

	// Structured JSON logger on stderr; stdout carries data only.
	logger := slog.New(slog.NewJSONHandler(app.stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("search_executable", cfg.Search.Executable),
		slog.Any("note_directories", cfg.Search.Directories),
		slog.Duration("search_timeout", cfg.Search.Timeout),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.Search.AmbiguousDirectories() {
		logger.Warn("multiple note directories are passed to the search utility as one space-joined path",
			slog.Any("note_directories", cfg.Search.Directories))
	}

	if app.searcher == nil {
		exe, err := search.ResolveExecutable(cfg.Search.Executable)
		if err != nil {
			// Searches will fail and every reference degrades to unresolved.
			logger.Warn("search executable not resolved", slog.String("error", err.Error()))
			exe = cfg.Search.Executable
		}
		app.searcher = search.New(search.Config{
			Executable:   exe,
			Directories:  cfg.Search.Directories,
			Timeout:      cfg.Search.Timeout,
			MarkdownGlob: cfg.Search.MarkdownGlob,
		}, logger)
	}

	return app, logger, nil
}

func (a *application) rewriter(logger *slog.Logger) *rewriter.Rewriter {
	return rewriter.New(a.searcher,
		rewriter.WithUnresolvedMarker(a.config.Rewrite.UnresolvedMarker),
		rewriter.WithLogger(logger),
	)
}
