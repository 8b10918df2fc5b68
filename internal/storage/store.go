// Package storage persists JSON documents under slash-separated logical keys
// such as "stories/my_title.json".
//
// Every backend implements DocumentStore with the same semantics: existence of
// a key is the only source of truth, reads and writes always round-trip to the
// backing medium, and Archive relocates a document into an "archive"
// namespace next to it instead of erasing it.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/story-cms-api/internal/models"
)

const (
	// DocumentExt is the suffix of every document key
	DocumentExt = ".json"
	// ArchiveNamespace is the directory that receives archived documents
	ArchiveNamespace = "archive"
	// archiveStampLayout suffixes archived keys, second resolution
	archiveStampLayout = "20060102_150405"
)

// Entry is a live document key together with its last modification time
type Entry struct {
	Key     string
	ModTime time.Time
}

// DocumentStore is the key -> document persistence capability.
//
// Errors wrap models.ErrNotFound, models.ErrAlreadyExists,
// models.ErrCorruptDocument or models.ErrIO.
type DocumentStore interface {
	// Exists reports whether a document is stored under key
	Exists(ctx context.Context, key string) (bool, error)
	// Read decodes the document stored under key into doc
	Read(ctx context.Context, key string, doc interface{}) error
	// Write stores doc under key, replacing any previous document
	Write(ctx context.Context, key string, doc interface{}) error
	// Create stores doc under key only if the key is absent
	Create(ctx context.Context, key string, doc interface{}) error
	// Archive moves the document to <dir>/archive/<name>_<YYYYMMDD_HHMMSS>.json
	// and returns the new key
	Archive(ctx context.Context, key string) (string, error)
	// List returns the documents directly inside namespace; nested
	// namespaces such as the archive are not included
	List(ctx context.Context, namespace string) ([]Entry, error)
}

// HealthChecker is implemented by stores that can probe their backing medium
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Option configures a store
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for archive stamps and modification times
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func applyOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ArchiveKey returns the archive key of key for an archival at instant at
func ArchiveKey(key string, at time.Time) string {
	dir, base := path.Split(key)
	name := strings.TrimSuffix(base, DocumentExt)
	return dir + ArchiveNamespace + "/" + name + "_" + at.UTC().Format(archiveStampLayout) + DocumentExt
}

// ArchiveID is the archive key without namespace and extension, safe to
// show to API clients
func ArchiveID(archiveKey string) string {
	return strings.TrimSuffix(path.Base(archiveKey), DocumentExt)
}

// ArchiveTime recovers the archival instant stamped into an archive key
func ArchiveTime(archiveKey string) (time.Time, error) {
	id := ArchiveID(archiveKey)
	if len(id) < len(archiveStampLayout) {
		return time.Time{}, fmt.Errorf("archive key %q carries no stamp", archiveKey)
	}
	return time.Parse(archiveStampLayout, id[len(id)-len(archiveStampLayout):])
}

// checkKey rejects keys that are not relative, clean, slash-separated paths
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key || strings.Contains(key, "..") {
		return fmt.Errorf("%w: invalid document key %q", models.ErrValidation, key)
	}
	return nil
}

func namespacePrefix(namespace string) string {
	return strings.TrimSuffix(namespace, "/") + "/"
}

// isDirectChild reports whether key is a document directly inside prefix
func isDirectChild(prefix, key string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	rest := strings.TrimPrefix(key, prefix)
	return rest != "" && !strings.Contains(rest, "/") && strings.HasSuffix(rest, DocumentExt)
}

// encodeDocument renders doc as human-readable JSON
func encodeDocument(doc interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode document: %v", models.ErrIO, err)
	}
	return data, nil
}

func decodeDocument(key string, data []byte, doc interface{}) error {
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrCorruptDocument, key, err)
	}
	return nil
}

func ioError(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", models.ErrIO, op, key, err)
}
