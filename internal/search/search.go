// Package search wraps the external text-search utility (ripgrep) that
// locates notes on disk. Every query degrades to an empty result when the
// utility fails, times out, or cannot be started.
package search

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/starford/zklink/internal/apperr"
)

// DefaultTimeout bounds a single search when Config.Timeout is unset.
const DefaultTimeout = 10000 * time.Second

// Config describes how the search utility is invoked.
type Config struct {
	Executable   string
	Directories  []string
	Timeout      time.Duration
	MarkdownGlob string
}

// LineMatch is one line-numbered content hit.
type LineMatch struct {
	Line int
	Text string
}

// Gateway runs searches over the configured note directories.
type Gateway struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Gateway. A nil logger falls back to slog.Default().
func New(cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{cfg: cfg, logger: logger}
}

// FindFilesByGlob lists files whose name matches glob, case-insensitively.
func (g *Gateway) FindFilesByGlob(ctx context.Context, glob string) []string {
	out, err := g.run(ctx, "--files", "--iglob", glob, g.searchPath())
	if err != nil {
		return []string{}
	}
	return splitLines(out)
}

// FindFilesByContent lists Markdown files whose content matches pattern,
// case-insensitively.
func (g *Gateway) FindFilesByContent(ctx context.Context, pattern string) []string {
	out, err := g.run(ctx,
		"--iglob", g.cfg.MarkdownGlob,
		"--ignore-case",
		"-l",
		pattern,
		g.searchPath(),
	)
	if err != nil {
		return []string{}
	}
	return splitLines(out)
}

// FindLinesByContent returns every line matching pattern in Markdown
// files, grouped by file in the order the utility reported them.
func (g *Gateway) FindLinesByContent(ctx context.Context, pattern string) map[string][]LineMatch {
	out, err := g.run(ctx,
		"--iglob", g.cfg.MarkdownGlob,
		"--line-number",
		"--with-filename",
		"--no-heading",
		"--color", "never",
		"--ignore-case",
		pattern,
		g.searchPath(),
	)
	if err != nil {
		return map[string][]LineMatch{}
	}
	return parseLineMatches(out)
}

// searchPath joins all directories into the single path argument the
// utility receives.
func (g *Gateway) searchPath() string {
	return strings.Join(g.cfg.Directories, " ")
}

// run executes the utility and returns its decoded stdout. The error is
// one of apperr.ErrSearchTimeout or apperr.ErrSearchFailed.
func (g *Gateway) run(ctx context.Context, args ...string) (string, error) {
	timeout := g.cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	g.logger.Debug("search: run",
		slog.String("cmd", g.cfg.Executable+" "+strings.Join(args, " ")))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.cfg.Executable, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	raw, err := cmd.Output()
	if err != nil {
		err = classify(ctx, err, timeout)
		g.logger.Debug("search: unsuccessful",
			slog.String("cmd", g.cfg.Executable+" "+strings.Join(args, " ")),
			slog.String("error", err.Error()),
			slog.String("stderr", decode(stderr.Bytes())))
		return "", err
	}

	return decode(raw), nil
}

func classify(ctx context.Context, err error, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", apperr.ErrSearchTimeout, timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: exit status %d", apperr.ErrSearchFailed, exitErr.ExitCode())
	}
	return fmt.Errorf("%w: %v", apperr.ErrSearchFailed, err)
}

// decode converts raw output to text, replacing invalid UTF-8 and
// dropping carriage returns.
func decode(raw []byte) string {
	text, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		text = bytes.ToValidUTF8(raw, []byte("\uFFFD"))
	}
	return strings.ReplaceAll(string(text), "\r", "")
}

func splitLines(out string) []string {
	res := []string{}
	for _, line := range strings.Split(out, "\n") {
		if line != "" {
			res = append(res, line)
		}
	}
	return res
}

// parseLineMatches parses "path:line:text" records. Only the first two
// colons separate fields.
func parseLineMatches(out string) map[string][]LineMatch {
	res := make(map[string][]LineMatch)
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			continue
		}
		res[parts[0]] = append(res[parts[0]], LineMatch{
			Line: n,
			Text: strings.TrimLeft(parts[2], " "),
		})
	}
	return res
}

// ResolveExecutable locates the search utility. Names containing a path
// separator are checked as given; bare names are looked up on PATH and
// in the usual install locations.
func ResolveExecutable(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", fmt.Errorf("%w: %s", apperr.ErrExecutableNotFound, name)
		}
		return path, nil
	}

	candidates := []string{
		name,
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/opt/homebrew/bin", name),
		filepath.Join("/usr/bin", name),
		filepath.Join(os.Getenv("HOME"), ".cargo", "bin", name),
	}
	for _, p := range candidates {
		if path, err := exec.LookPath(p); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", apperr.ErrExecutableNotFound, name)
}
