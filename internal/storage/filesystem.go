package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/story-cms-api/internal/models"
)

// FilesystemStore keeps one pretty-printed JSON file per key below a root
// directory, e.g. <root>/stories/my_title.json.
type FilesystemStore struct {
	root string
	now  func() time.Time
	log  zerolog.Logger
}

var _ DocumentStore = (*FilesystemStore)(nil)

// NewFilesystemStore creates the root directory if needed
func NewFilesystemStore(root string, log zerolog.Logger, opts ...Option) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	o := applyOptions(opts)
	store := &FilesystemStore{
		root: root,
		now:  o.now,
		log:  log.With().Str("component", "filesystem_store").Logger(),
	}
	store.log.Info().Str("root", root).Msg("Filesystem document store ready")
	return store, nil
}

// Root returns the data directory
func (s *FilesystemStore) Root() string {
	return s.root
}

func (s *FilesystemStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Exists checks if a file is stored under key
func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, ioError("stat", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// Read decodes the file stored under key
func (s *FilesystemStore) Read(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, key)
	}
	if err != nil {
		return ioError("read", key, err)
	}
	return decodeDocument(key, data, doc)
}

// Write replaces the file under key atomically through a temporary file
func (s *FilesystemStore) Write(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	tmp, err := s.writeTemp(key, doc)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return ioError("write", key, err)
	}
	return nil
}

// Create links a fully written temporary file into place. The link fails if
// the target exists, so an existing document is never overwritten, even by
// another process.
func (s *FilesystemStore) Create(ctx context.Context, key string, doc interface{}) error {
	if err := checkKey(key); err != nil {
		return err
	}
	tmp, err := s.writeTemp(key, doc)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, s.path(key)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
		}
		return ioError("create", key, err)
	}
	return nil
}

func (s *FilesystemStore) writeTemp(key string, doc interface{}) (string, error) {
	data, err := encodeDocument(doc)
	if err != nil {
		return "", err
	}
	target := s.path(key)
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", ioError("mkdir", key, err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%s", filepath.Base(target), uuid.New().String()[:8]))
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return "", ioError("write", key, err)
	}
	return tmp, nil
}

// Archive renames the file into the archive directory, creating it on first use.
// Two archivals of the same key within one second would collide; the second
// one fails with ErrAlreadyExists instead of overwriting.
func (s *FilesystemStore) Archive(ctx context.Context, key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	src := s.path(key)
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", models.ErrNotFound, key)
		}
		return "", ioError("stat", key, err)
	}

	archiveKey := ArchiveKey(key, s.now())
	dst := s.path(archiveKey)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", ioError("mkdir", archiveKey, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", models.ErrAlreadyExists, archiveKey)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", ioError("archive", key, err)
	}

	s.log.Debug().Str("key", key).Str("archive_key", archiveKey).Msg("Document archived")
	return archiveKey, nil
}

// List returns the JSON files directly inside namespace with their mtimes
func (s *FilesystemStore) List(ctx context.Context, namespace string) ([]Entry, error) {
	prefix := namespacePrefix(namespace)
	dirEntries, err := os.ReadDir(s.path(strings.TrimSuffix(prefix, "/")))
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, ioError("list", namespace, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != DocumentExt {
			continue
		}
		info, err := de.Info()
		if errors.Is(err, os.ErrNotExist) {
			// archived or replaced between ReadDir and Info
			continue
		}
		if err != nil {
			return nil, ioError("stat", prefix+name, err)
		}
		entries = append(entries, Entry{Key: prefix + name, ModTime: info.ModTime()})
	}
	return entries, nil
}

// HealthCheck verifies the data directory is reachable
func (s *FilesystemStore) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		return ioError("stat", "root", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: data root is not a directory", models.ErrIO)
	}
	return nil
}
