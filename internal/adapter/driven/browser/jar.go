package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

// storedCookie is the on-disk shape of one session cookie.
type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Domain  string    `json:"domain,omitempty"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Jar is the persisted session context: a JSON cookie file on the sandbox's
// persistent volume. The interactive-login tooling writes it out-of-band;
// the engine reads it on every reauth and writes back any refreshed cookies.
type Jar struct {
	path string
}

// NewJar creates a Jar backed by the given file path.
func NewJar(path string) *Jar {
	return &Jar{path: path}
}

// Path returns the jar's file path.
func (j *Jar) Path() string {
	return j.path
}

// Load reads the persisted cookies. Returns fs.ErrNotExist (wrapped) when the
// jar file is missing.
func (j *Jar) Load() ([]*http.Cookie, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse session context %s: %w", j.path, err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		cookies = append(cookies, &http.Cookie{
			Name:    sc.Name,
			Value:   sc.Value,
			Domain:  sc.Domain,
			Path:    sc.Path,
			Expires: sc.Expires,
		})
	}
	return cookies, nil
}

// Save atomically replaces the jar file with the given cookies.
func (j *Jar) Save(cookies []*http.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("create session context dir: %w", err)
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Domain:  ck.Domain,
			Path:    ck.Path,
			Expires: ck.Expires,
		})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session context: %w", err)
	}

	if err := atomic.WriteFile(j.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write session context: %w", err)
	}
	if err := os.Chmod(j.path, 0o600); err != nil {
		return fmt.Errorf("chmod session context: %w", err)
	}
	return nil
}
