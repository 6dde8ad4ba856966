// Package testutil provides shared test helpers for note directories and a
// stand-in for the external search utility.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// NoteDir creates a temporary notes directory populated with files
// (relative path → content).
func NoteDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// FakeSearch is a shell script standing in for the search utility.
type FakeSearch struct {
	// Path is the executable to configure as the search command.
	Path string

	argsFile string
}

// NewFakeSearch writes an executable that prints stdout and exits with
// exitCode, recording its arguments one per line.
func NewFakeSearch(t *testing.T, stdout string, exitCode int) *FakeSearch {
	t.Helper()
	return writeFake(t, stdout, fmt.Sprintf("exit %d", exitCode))
}

// NewSlowSearch writes an executable that blocks for d before printing
// anything, for exercising timeouts.
func NewSlowSearch(t *testing.T, d time.Duration) *FakeSearch {
	t.Helper()
	return writeFake(t, "", fmt.Sprintf("exec sleep %d", int(d.Seconds())+1))
}

func writeFake(t *testing.T, stdout, tail string) *FakeSearch {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake search utility requires a POSIX shell")
	}
	dir := t.TempDir()
	outFile := filepath.Join(dir, "stdout")
	argsFile := filepath.Join(dir, "args")
	if err := os.WriteFile(outFile, []byte(stdout), 0o644); err != nil {
		t.Fatal(err)
	}

	script := fmt.Sprintf("#!/bin/sh\nfor a in \"$@\"; do printf '%%s\\n' \"$a\"; done > '%s'\ncat '%s'\n%s\n",
		argsFile, outFile, tail)
	exe := filepath.Join(dir, "rg")
	if err := os.WriteFile(exe, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return &FakeSearch{Path: exe, argsFile: argsFile}
}

// Args returns the arguments of the most recent invocation.
func (f *FakeSearch) Args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}
