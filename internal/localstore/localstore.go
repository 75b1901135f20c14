// internal/localstore/localstore.go
//
// File-backed stand-in for the browser's localStorage.
//
// Context
// -------
// Before the site had a database, the admin screens kept every collection
// in localStorage under fixed keys.  An export of that storage is a JSON
// object of key → string, where each string is itself JSON:
//
//	{"events": "[{\"id\":\"1\",...}]", "siteSettings": "{\"title\":...}"}
//
// Snapshot loads such a file, decodes individual keys, and writes changes
// back atomically.  Values stored as plain JSON (not wrapped in a string)
// are accepted too, since hand-edited exports often look like that.
//
// Notes
// -----
// • A missing file is an empty snapshot, not an error.
// • Decode on an absent key reports false with no error; an unparseable
//   value reports the parse error so callers can decide to treat it as
//   empty.
package localstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Keys used by the site's admin screens.
const (
	KeyEvents          = "events"
	KeyUsers           = "users"
	KeyFormSubmissions = "formSubmissions"
	KeyRecipes         = "recipes"
	KeyBlogPosts       = "blogPosts"
	KeySiteSettings    = "siteSettings"
	KeyInstagramCache  = "instagramCache"
)

// Snapshot is an in-memory copy of one localStorage export.  Safe for
// concurrent use.
type Snapshot struct {
	path string

	mu    sync.RWMutex
	items map[string]string
}

// New returns an empty snapshot that Save writes to path.
func New(path string) *Snapshot {
	return &Snapshot{path: path, items: make(map[string]string)}
}

// Load reads the export at path.
func Load(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(path), nil
	}
	if err != nil {
		return nil, fmt.Errorf("localstore: read %s: %w", path, err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("localstore: %s: %w", path, err)
	}
	s.path = path
	return s, nil
}

// Parse decodes an export held in memory.
func Parse(raw []byte) (*Snapshot, error) {
	s := New("")
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	for k, v := range obj {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			s.items[k] = str
			continue
		}
		s.items[k] = string(v)
	}
	return s, nil
}

// Path is where Save writes.
func (s *Snapshot) Path() string { return s.path }

// Keys lists stored keys in sorted order.
func (s *Snapshot) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the stored string for key.
func (s *Snapshot) Raw(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Decode unmarshals key into v.  It reports whether the key was present.
func (s *Snapshot) Decode(key string, v any) (bool, error) {
	raw, ok := s.Raw(key)
	if !ok || raw == "" || raw == "null" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, fmt.Errorf("localstore: decode %q: %w", key, err)
	}
	return true, nil
}

// Set stores v under key as a JSON string.
func (s *Snapshot) Set(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("localstore: encode %q: %w", key, err)
	}
	s.mu.Lock()
	s.items[key] = string(b)
	s.mu.Unlock()
	return nil
}

// Save writes the snapshot back to its path through a temp file and
// rename.
func (s *Snapshot) Save() error {
	if s.path == "" {
		return errors.New("localstore: snapshot has no path")
	}
	s.mu.RLock()
	b, err := json.MarshalIndent(s.items, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".localstore-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
