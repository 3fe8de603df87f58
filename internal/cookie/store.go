package cookie

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Default locations used when no path is configured.
const (
	DefaultPath     = "./cookie/cookie.json"
	DefaultBoltPath = "./cookie/cookie.db"
)

// Store persists a cookie list. Save overwrites the whole list.
type Store interface {
	Save(cookies []Cookie) error
	Load() ([]Cookie, error)
	Close() error
}

// ResolvePath returns the location the backend keeps its cookies at,
// applying the backend's default when path is empty. The memory backend
// has no location.
func ResolvePath(backend, path string) string {
	switch {
	case backend == "memory":
		return ""
	case path != "":
		return path
	case backend == "bolt":
		return DefaultBoltPath
	default:
		return DefaultPath
	}
}

// Open returns a store for the named backend ("file", "bolt" or
// "memory").
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(path), nil
	case "bolt":
		return NewBoltStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cookie backend %q", backend)
	}
}

// FileStore implements Store with a JSON file holding an array.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed cookie store.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	return &FileStore{path: path}
}

// Path returns the cookie file path.
func (s *FileStore) Path() string {
	return s.path
}

// Save writes the cookie list, replacing the file.
func (s *FileStore) Save(cookies []Cookie) error {
	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// Load reads the cookie list. A missing file is created holding an empty
// array.
func (s *FileStore) Load() ([]Cookie, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Cookie{}, s.Save(nil)
		}
		return nil, err
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}
	return cookies, nil
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error {
	return nil
}

var (
	bucketCookies = []byte("cookies")
	keyCookies    = []byte("session")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db   *bolt.DB
	path string
}

// NewBoltStore opens or creates a BoltDB cookie database.
func NewBoltStore(path string) (*BoltStore, error) {
	if path == "" {
		path = DefaultBoltPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCookies)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltStore{db: db, path: path}, nil
}

// Save stores the cookie list.
func (s *BoltStore) Save(cookies []Cookie) error {
	if cookies == nil {
		cookies = []Cookie{}
	}
	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCookies)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}
		return b.Put(keyCookies, data)
	})
}

// Load returns the stored cookie list, empty when nothing was saved.
func (s *BoltStore) Load() ([]Cookie, error) {
	cookies := []Cookie{}

	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCookies)
		if b == nil {
			return fmt.Errorf("bucket not found")
		}

		data := b.Get(keyCookies)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &cookies)
	})
	if err != nil {
		return nil, err
	}
	return cookies, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu      sync.Mutex
	cookies []Cookie
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save keeps a copy of the list.
func (s *MemoryStore) Save(cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = append([]Cookie(nil), cookies...)
	return nil
}

// Load returns a copy of the stored list.
func (s *MemoryStore) Load() ([]Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Cookie{}, s.cookies...), nil
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}
