package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

func TestExistsRequiresNonEmptyDir(t *testing.T) {
	layout, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	exists, err := layout.Exists("abc123")
	if err != nil || exists {
		t.Fatalf("expected missing index, got exists=%v err=%v", exists, err)
	}

	dir, err := layout.Prepare("abc123")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	exists, _ = layout.Exists("abc123")
	if exists {
		t.Fatalf("empty dir must not count as an index")
	}

	if err := os.WriteFile(filepath.Join(dir, "index.db"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	exists, _ = layout.Exists("abc123")
	if !exists {
		t.Fatalf("expected non-empty dir to count as an index")
	}

	if _, err := layout.Prepare("abc123"); !domain.IsKind(err, domain.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestDirRejectsPathTraversal(t *testing.T) {
	layout, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, id := range []string{"", "..", "../x", "a/b"} {
		if _, err := layout.Dir(id); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %q, got %v", id, err)
		}
	}
}

func TestDiscardRemovesIndexDir(t *testing.T) {
	layout, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	dir, err := layout.Prepare("idx")
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.db"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := layout.Discard("idx"); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected dir removed, stat err = %v", err)
	}
}
