// Package filecache implements the local bootstrap cache as a JSON file.
package filecache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/ericfisherdev/cookierelay/internal/domain/model"
	"github.com/ericfisherdev/cookierelay/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BootstrapCache = (*Cache)(nil)

// Cache stores the last known credential in a single JSON file on the
// sandbox's persistent volume. The file survives dormancy cycles, which is
// what lets a freshly woken sandbox rotate without consulting the store.
type Cache struct {
	path string
}

// New creates a Cache at the given path. The parent directory is created on
// first Save.
func New(path string) *Cache {
	return &Cache{path: path}
}

// Load returns the cached record, or (nil, nil) when no cache file exists.
func (c *Cache) Load() (*model.CredentialRecord, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bootstrap cache: %w", err)
	}

	var rec model.CredentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse bootstrap cache %s: %w", c.path, err)
	}
	return &rec, nil
}

// Save atomically replaces the cache file. Atomic replace means a reader (or
// a crashed writer) never observes a half-written credential.
func (c *Cache) Save(rec model.CredentialRecord) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bootstrap cache: %w", err)
	}

	if err := atomic.WriteFile(c.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write bootstrap cache: %w", err)
	}

	// The credential is secret material; keep it out of reach of other users
	// on the host.
	if err := os.Chmod(c.path, 0o600); err != nil {
		return fmt.Errorf("chmod bootstrap cache: %w", err)
	}
	return nil
}
