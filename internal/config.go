package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/zklink/internal/rewriter"
	"github.com/starford/zklink/internal/search"
)

// Defaults mirror the constants the tool has always shipped with.
const (
	DefaultSearchExecutable = "rg"
	DefaultSearchTimeout    = search.DefaultTimeout
	DefaultMarkdownGlob     = "*.md"
	DefaultUnresolvedMarker = rewriter.DefaultUnresolvedMarker
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Search  SearchConfig      `yaml:"search"`
	Rewrite RewriteConfig     `yaml:"rewrite"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return c.Rewrite.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// SearchConfig describes the external search utility and the note
// directories it is pointed at.
//
// Directories are handed to the utility as one space-joined argument, so
// more than one directory, or a directory containing a space when more
// than one is configured, will not resolve as expected.
type SearchConfig struct {
	Executable   string        `yaml:"executable"`
	Directories  []string      `yaml:"directories"`
	Timeout      time.Duration `yaml:"timeout"`
	MarkdownGlob string        `yaml:"markdown_glob"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Executable, validation.Required),
		validation.Field(&c.Directories, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.MarkdownGlob, validation.Required),
	)
}

// AmbiguousDirectories reports whether the space-joined search path can
// no longer be split back into the configured directories.
func (c *SearchConfig) AmbiguousDirectories() bool {
	return len(c.Directories) > 1
}

// RewriteConfig holds link formatting options.
type RewriteConfig struct {
	UnresolvedMarker string `yaml:"unresolved_marker"`
}

// Validate validates the rewrite configuration.
func (c *RewriteConfig) Validate() error {
	// A marker carrying a reference tag would be matched again after splicing.
	if strings.Contains(c.UnresolvedMarker, "[[") {
		return fmt.Errorf("rewrite: unresolved_marker must not contain %q", "[[")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Search: SearchConfig{
			Executable:   DefaultSearchExecutable,
			Directories:  []string{"./zk"},
			Timeout:      DefaultSearchTimeout,
			MarkdownGlob: DefaultMarkdownGlob,
		},
		Rewrite: RewriteConfig{
			UnresolvedMarker: DefaultUnresolvedMarker,
		},
	}
}
