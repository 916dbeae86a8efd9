// Package filesystem stores cleaned page text as plain files, one per slug,
// with the page's canonical URL in a sibling ".url" file.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/satgraffin/satgraffin/internal/core/domain"
	"github.com/satgraffin/satgraffin/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ContentStore = (*ContentStore)(nil)

const urlExtension = ".url"

// ContentStore implements driven.ContentStore on a directory.
type ContentStore struct {
	dir string
}

// NewContentStore creates the directory if needed.
func NewContentStore(dir string) (*ContentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create content dir: %w", err)
	}
	return &ContentStore{dir: dir}, nil
}

// Dir returns the backing directory.
func (s *ContentStore) Dir() string { return s.dir }

// Save writes the page text and its URL sidecar. Each file is replaced
// atomically, so a concurrent Load sees either the old or the new text.
func (s *ContentStore) Save(ctx context.Context, page *domain.PageRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(page.Slug)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, []byte(page.Text)); err != nil {
		return fmt.Errorf("save %s: %w", page.Slug, err)
	}
	if err := writeFileAtomic(sidecar(path), []byte(page.URL)); err != nil {
		return fmt.Errorf("save %s url: %w", page.Slug, err)
	}
	return nil
}

// Load reads a page by slug. A missing sidecar leaves URL empty.
func (s *ContentStore) Load(ctx context.Context, slug string) (*domain.PageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.path(slug)
	if err != nil {
		return nil, err
	}

	text, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", slug, err)
	}

	page := &domain.PageRecord{Slug: slug, Text: string(text)}
	if info, err := os.Stat(path); err == nil {
		page.FetchedAt = info.ModTime()
	}
	if u, err := os.ReadFile(sidecar(path)); err == nil {
		page.URL = strings.TrimSpace(string(u))
	}
	return page, nil
}

// Exists reports whether the text artifact for slug is present.
func (s *ContentStore) Exists(ctx context.Context, slug string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := s.path(slug)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return info.Mode().IsRegular(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", slug, err)
	}
}

// List returns the slugs of every stored page, sorted.
func (s *ContentStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list content dir: %w", err)
	}

	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == domain.SlugExtension {
			slugs = append(slugs, e.Name())
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// path maps a slug to its file, rejecting anything that is not a bare name.
func (s *ContentStore) path(slug string) (string, error) {
	if slug == "" || slug != filepath.Base(slug) || slug == "." || slug == ".." {
		return "", fmt.Errorf("%w: slug %q", domain.ErrInvalidInput, slug)
	}
	return filepath.Join(s.dir, slug), nil
}

func sidecar(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + urlExtension
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
