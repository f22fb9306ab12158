// Package store persists editor state as versioned JSON records.
//
// Every key holds a record {"version": N, "data": ...}. Readers declare the
// version they understand through a Schema; a record written by another
// version is reported as ErrVersionMismatch so callers can fall back to
// defaults instead of decoding foreign data.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Errors returned by stores.
var (
	// ErrVersionMismatch indicates a stored record has another schema version.
	ErrVersionMismatch = errors.New("schema version mismatch")
	// ErrCorrupt indicates a stored record cannot be decoded.
	ErrCorrupt = errors.New("corrupt record")
)

// Record is the stored form of one key.
type Record struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Store is a key-value store of records.
type Store interface {
	// Get returns the record for key; ok is false if absent.
	Get(key string) (rec Record, ok bool, err error)
	// Put stores rec under key.
	Put(key string, rec Record) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys lists stored keys in sorted order.
	Keys() ([]string, error)
}

// Schema names a key and the record version its readers understand.
type Schema struct {
	Key     string
	Version int
}

// Load decodes the record for the schema's key into dst. It returns false
// if the key is absent.
func (s Schema) Load(st Store, dst any) (bool, error) {
	rec, ok, err := st.Get(s.Key)
	if err != nil || !ok {
		return false, err
	}
	if rec.Version != s.Version {
		return false, &KeyError{Op: "load", Key: s.Key, Err: fmt.Errorf("%w: stored %d, want %d", ErrVersionMismatch, rec.Version, s.Version)}
	}
	if err := json.Unmarshal(rec.Data, dst); err != nil {
		return false, &KeyError{Op: "load", Key: s.Key, Err: fmt.Errorf("%w: %v", ErrCorrupt, err)}
	}
	return true, nil
}

// Save encodes v as the schema's record.
func (s Schema) Save(st Store, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &KeyError{Op: "save", Key: s.Key, Err: err}
	}
	return st.Put(s.Key, Record{Version: s.Version, Data: data})
}

// KeyError records a failed operation on a key.
type KeyError struct {
	Op  string
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}
