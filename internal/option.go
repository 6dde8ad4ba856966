package internal

import (
	"io"

	"github.com/starford/zklink/internal/search"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config   *Config
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	searcher search.Searcher
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithIO sets the streams used for input, output and logs.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}

// WithSearcher replaces the external search utility.
func WithSearcher(s search.Searcher) Option {
	return func(a *application) {
		a.searcher = s
	}
}
