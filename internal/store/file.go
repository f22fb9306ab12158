package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileStore keeps all records in one JSON document on disk:
//
//	{"quizMarkdown": {"version": 1, "data": "## Aufgabe 1 ..."}}
//
// Writes go to a temporary file that is renamed over the document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by the file at path. The file and its
// directory are created on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Get returns the record for key.
func (s *FileStore) Get(key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return Record{}, false, err
	}
	v := gjson.GetBytes(doc, gjson.Escape(key))
	if !v.Exists() {
		return Record{}, false, nil
	}
	if !v.IsObject() || !v.Get("version").Exists() {
		return Record{}, false, &KeyError{Op: "get", Key: key, Err: ErrCorrupt}
	}

	rec := Record{Version: int(v.Get("version").Int())}
	if data := v.Get("data"); data.Exists() {
		rec.Data = json.RawMessage(data.Raw)
	} else {
		rec.Data = json.RawMessage("null")
	}
	return rec, true, nil
}

// Put stores rec under key.
func (s *FileStore) Put(key string, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return &KeyError{Op: "put", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	doc, err = sjson.SetRawBytes(doc, gjson.Escape(key), raw)
	if err != nil {
		return &KeyError{Op: "put", Key: key, Err: err}
	}
	return s.write(doc)
}

// Delete removes key.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if !gjson.GetBytes(doc, gjson.Escape(key)).Exists() {
		return nil
	}
	doc, err = sjson.DeleteBytes(doc, gjson.Escape(key))
	if err != nil {
		return &KeyError{Op: "delete", Key: key, Err: err}
	}
	return s.write(doc)
}

// Keys lists stored keys.
func (s *FileStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := []string{}
	gjson.ParseBytes(doc).ForEach(func(k, _ gjson.Result) bool {
		keys = append(keys, k.String())
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

// read returns the document, or an empty object if the file is missing.
func (s *FileStore) read() ([]byte, error) {
	doc, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading store %s: %w", s.path, err)
	}
	if len(doc) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(doc) || !gjson.ParseBytes(doc).IsObject() {
		return nil, fmt.Errorf("store %s: %w", s.path, ErrCorrupt)
	}
	return doc, nil
}

func (s *FileStore) write(doc []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing store %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("writing store %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing store %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing store %s: %w", s.path, err)
	}
	return nil
}
