package search

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/zklink/internal/apperr"
	"github.com/starford/zklink/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newGateway(exe string, dirs ...string) *Gateway {
	return New(Config{
		Executable:   exe,
		Directories:  dirs,
		Timeout:      5 * time.Second,
		MarkdownGlob: "*.md",
	}, quietLogger())
}

func TestFindFilesByGlob(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "/zk/20200314161751_My Note.md\n\n/zk/other.md\n", 0)
	g := newGateway(fake.Path, "/zk")

	got := g.FindFilesByGlob(context.Background(), "*20200314161751*")
	want := []string{"/zk/20200314161751_My Note.md", "/zk/other.md"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	wantArgs := []string{"--files", "--iglob", "*20200314161751*", "/zk"}
	if diff := cmp.Diff(wantArgs, fake.Args(t)); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestFindFilesByGlob_JoinsDirectories(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "", 0)
	g := newGateway(fake.Path, "/zk", "/archive")

	_ = g.FindFilesByGlob(context.Background(), "*x*")
	args := fake.Args(t)
	if last := args[len(args)-1]; last != "/zk /archive" {
		t.Errorf("search path = %q, want %q", last, "/zk /archive")
	}
}

func TestFindFilesByContent(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "/zk/a.md\r\n/zk/b.md\r\n", 0)
	g := newGateway(fake.Path, "/zk")

	got := g.FindFilesByContent(context.Background(), "20200314161751")
	want := []string{"/zk/a.md", "/zk/b.md"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	wantArgs := []string{"--iglob", "*.md", "--ignore-case", "-l", "20200314161751", "/zk"}
	if diff := cmp.Diff(wantArgs, fake.Args(t)); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestFindLinesByContent(t *testing.T) {
	out := "/zk/a.md:3:  see [[20200314161751]]\n" +
		"/zk/b.md:10:time: 12:30\n" +
		"/zk/a.md:7:again\n"
	fake := testutil.NewFakeSearch(t, out, 0)
	g := newGateway(fake.Path, "/zk")

	got := g.FindLinesByContent(context.Background(), "2020")
	want := map[string][]LineMatch{
		"/zk/a.md": {{Line: 3, Text: "see [[20200314161751]]"}, {Line: 7, Text: "again"}},
		"/zk/b.md": {{Line: 10, Text: "time: 12:30"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("matches mismatch (-want +got):\n%s", diff)
	}

	wantArgs := []string{
		"--iglob", "*.md",
		"--line-number",
		"--with-filename",
		"--no-heading",
		"--color", "never",
		"--ignore-case",
		"2020",
		"/zk",
	}
	if diff := cmp.Diff(wantArgs, fake.Args(t)); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_ZeroTimeoutUsesDefault(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "/zk/a.md\n", 0)
	g := New(Config{Executable: fake.Path, Directories: []string{"/zk"}}, quietLogger())

	got := g.FindFilesByGlob(context.Background(), "*a*")
	if diff := cmp.Diff([]string{"/zk/a.md"}, got); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestNonZeroExitIsEmpty(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "/zk/partial.md\n", 2)
	g := newGateway(fake.Path, "/zk")

	if got := g.FindFilesByGlob(context.Background(), "*x*"); len(got) != 0 {
		t.Errorf("glob = %v, want empty", got)
	}
	if got := g.FindFilesByContent(context.Background(), "x"); len(got) != 0 {
		t.Errorf("content = %v, want empty", got)
	}
	if got := g.FindLinesByContent(context.Background(), "x"); got == nil || len(got) != 0 {
		t.Errorf("lines = %v, want empty map", got)
	}
}

func TestRun_NonZeroExitError(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "", 1)
	g := newGateway(fake.Path, "/zk")

	_, err := g.run(context.Background(), "--files")
	if !errors.Is(err, apperr.ErrSearchFailed) {
		t.Fatalf("err = %v, want ErrSearchFailed", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	fake := testutil.NewSlowSearch(t, 2*time.Second)
	g := New(Config{
		Executable:  fake.Path,
		Directories: []string{"/zk"},
		Timeout:     100 * time.Millisecond,
	}, quietLogger())

	start := time.Now()
	_, err := g.run(context.Background(), "--files")
	if !errors.Is(err, apperr.ErrSearchTimeout) {
		t.Fatalf("err = %v, want ErrSearchTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("timeout not enforced, took %v", elapsed)
	}
	if got := g.FindFilesByGlob(context.Background(), "*x*"); len(got) != 0 {
		t.Errorf("glob = %v, want empty on timeout", got)
	}
}

func TestRun_MissingExecutable(t *testing.T) {
	g := newGateway("/nonexistent/zklink-rg")
	_, err := g.run(context.Background(), "--files")
	if !errors.Is(err, apperr.ErrSearchFailed) {
		t.Fatalf("err = %v, want ErrSearchFailed", err)
	}
	if got := g.FindFilesByGlob(context.Background(), "*"); len(got) != 0 {
		t.Errorf("glob = %v, want empty", got)
	}
}

func TestDecode_InvalidUTF8(t *testing.T) {
	got := decode([]byte("a\xffb\r\n"))
	if got != "a\uFFFDb\n" {
		t.Errorf("decode = %q", got)
	}
}

func TestParseLineMatches_SkipsMalformed(t *testing.T) {
	got := parseLineMatches("no-colons\n/zk/a.md:x:text\n/zk/a.md:2:ok\n")
	want := map[string][]LineMatch{"/zk/a.md": {{Line: 2, Text: "ok"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveExecutable(t *testing.T) {
	fake := testutil.NewFakeSearch(t, "", 0)
	got, err := ResolveExecutable(fake.Path)
	if err != nil {
		t.Fatalf("ResolveExecutable: %v", err)
	}
	if got != fake.Path {
		t.Errorf("path = %q, want %q", got, fake.Path)
	}

	_, err = ResolveExecutable("zklink-definitely-not-installed")
	if !errors.Is(err, apperr.ErrExecutableNotFound) {
		t.Errorf("err = %v, want ErrExecutableNotFound", err)
	}
}
