package localfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

// Layout is the persisted index root: one subdirectory per index id.
// A non-empty subdirectory is the only signal that an index exists.
type Layout struct {
	basePath string
}

func New(basePath string) (*Layout, error) {
	if basePath == "" {
		basePath = "./vectordbs"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create index root: %w", err)
	}
	return &Layout{basePath: basePath}, nil
}

func (l *Layout) Root() string {
	return l.basePath
}

func (l *Layout) Dir(indexID string) (string, error) {
	if !validIndexID(indexID) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve index dir", fmt.Errorf("bad index id %q", indexID))
	}
	return filepath.Join(l.basePath, indexID), nil
}

func (l *Layout) Exists(indexID string) (bool, error) {
	dir, err := l.Dir(indexID)
	if err != nil {
		return false, err
	}
	empty, err := isEmptyDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("inspect index dir: %w", err)
	}
	return !empty, nil
}

// Prepare creates the directory for a new index. It refuses to reuse a
// directory that already holds data.
func (l *Layout) Prepare(indexID string) (string, error) {
	exists, err := l.Exists(indexID)
	if err != nil {
		return "", err
	}
	if exists {
		return "", domain.WrapError(domain.ErrIndexExists, "prepare index dir", fmt.Errorf("id=%s", indexID))
	}
	dir, err := l.Dir(indexID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create index dir: %w", err)
	}
	return dir, nil
}

// Discard removes a partially written index.
func (l *Layout) Discard(indexID string) error {
	dir, err := l.Dir(indexID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove index dir: %w", err)
	}
	return nil
}

func isEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func validIndexID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
