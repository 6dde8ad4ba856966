package export

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/zklink/internal/rewriter"
	"github.com/starford/zklink/internal/storage"
	"github.com/starford/zklink/internal/testutil"
)

type stubFinder struct {
	files map[string][]string
	calls int
}

func (f *stubFinder) FindFilesByGlob(_ context.Context, glob string) []string {
	f.calls++
	return f.files[glob]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// exportEnv creates source and destination roots and an Exporter over them.
func exportEnv(t *testing.T, files map[string]string) (*Exporter, *storage.FS, *storage.FS, *stubFinder) {
	t.Helper()
	src, err := storage.NewFS(testutil.NoteDir(t, files))
	if err != nil {
		t.Fatal(err)
	}
	dst, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	finder := &stubFinder{files: map[string][]string{
		"*20200314161751*": {"/zk/20200314161751_My Note.md"},
	}}
	rw := rewriter.New(finder, rewriter.WithLogger(quietLogger()))
	return New(src, dst, rw, quietLogger()), src, dst, finder
}

func TestAll_WritesMirror(t *testing.T) {
	e, _, dst, _ := exportEnv(t, map[string]string{
		"a.md":     "See [[20200314161751_My Note]].\n",
		"sub/b.md": "Missing [[20200101000000]].\n",
		"c.txt":    "[[20200314161751]]\n",
	})

	sum, err := e.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if sum.Files != 2 || sum.Written != 2 || sum.Replacements != 2 || sum.Unresolved != 1 {
		t.Errorf("summary = %+v", sum)
	}

	got, err := dst.Read("a.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := `See [\[\[My Note\]\]](/zk/20200314161751_My%20Note.md).` + "\n"
	if string(got) != want {
		t.Errorf("a.md = %q, want %q", got, want)
	}

	got, err = dst.Read(filepath.Join("sub", "b.md"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !strings.Contains(string(got), "20200101000000 - no link") {
		t.Errorf("b.md = %q", got)
	}

	if _, err := dst.Read("c.txt"); err == nil {
		t.Error("non-markdown file should not be exported")
	}
}

func TestAll_SkipsUnchanged(t *testing.T) {
	e, src, _, finder := exportEnv(t, map[string]string{
		"a.md": "[[20200314161751]]\n",
	})

	if _, err := e.All(context.Background()); err != nil {
		t.Fatalf("All: %v", err)
	}
	calls := finder.calls

	sum, err := e.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if sum.Written != 0 || finder.calls != calls {
		t.Errorf("unchanged note re-exported: summary = %+v, calls = %d", sum, finder.calls)
	}

	if err := src.Write("a.md", []byte("[[20200314161751]] again\n")); err != nil {
		t.Fatal(err)
	}
	sum, err = e.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if sum.Written != 1 || finder.calls != calls+1 {
		t.Errorf("changed note not re-resolved: summary = %+v, calls = %d", sum, finder.calls)
	}
}

func TestAll_RemovesStale(t *testing.T) {
	e, src, dst, _ := exportEnv(t, map[string]string{
		"keep.md": "keep\n",
		"gone.md": "gone\n",
	})
	if _, err := e.All(context.Background()); err != nil {
		t.Fatalf("All: %v", err)
	}
	if err := src.Delete("gone.md"); err != nil {
		t.Fatal(err)
	}

	sum, err := e.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if sum.Removed != 1 {
		t.Errorf("removed = %d, want 1", sum.Removed)
	}
	if _, err := dst.Read("gone.md"); err == nil {
		t.Error("stale mirror still present")
	}
	if _, err := dst.Read("keep.md"); err != nil {
		t.Errorf("keep.md missing: %v", err)
	}
}

func TestRemove_MissingIsFine(t *testing.T) {
	e, _, _, _ := exportEnv(t, nil)
	if err := e.Remove("never.md"); err != nil {
		t.Errorf("Remove: %v", err)
	}
}
