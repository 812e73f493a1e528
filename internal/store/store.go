// Package store persists encoded mark lists on disk.
//
// Every project key gets one JSON document under the data directory, named
// by the sha256 of the key:
//
//	{
//	  "key": "/home/me/proj",
//	  "lists": {
//	    "__default": ["{\"value\":\"main.go\",\"context\":{\"row\":3,\"col\":0}}"]
//	  }
//	}
//
// Entries are whatever the list config's encode produced; the store never
// interprets them.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/keymarks/internal/logging"
)

// Errors returned by Store.
var (
	// ErrCorrupt is returned when a data file is not valid JSON.
	ErrCorrupt = errors.New("corrupt data file")

	// ErrEmptyKey is returned for an empty project key.
	ErrEmptyKey = errors.New("empty project key")
)

const listsField = "lists"

// Store reads and writes data files in a directory.
type Store struct {
	dir string
	log *logging.Logger

	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		s.log = logging.OrNop(l).WithComponent("store")
	}
}

// New creates a store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &Store{dir: dir, log: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the data directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the data file of key.
func (s *Store) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

// Load returns the encoded items of list under key. Unknown keys and lists
// yield nil.
func (s *Store) Load(key, list string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(key)
	if err != nil || data == nil {
		return nil, err
	}

	res := gjson.GetBytes(data, listPath(list))
	if !res.Exists() {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("%s: list %q: %w", s.Path(key), list, ErrCorrupt)
	}

	var out []string
	for _, e := range res.Array() {
		if e.Type != gjson.String {
			s.log.Warn("skipping non-string entry in list %s: %s", list, e.Raw)
			continue
		}
		out = append(out, e.String())
	}
	return out, nil
}

// Save replaces list under key with items.
func (s *Store) Save(key, list string, items []string) error {
	if items == nil {
		items = []string{}
	}
	return s.update(key, func(data []byte) ([]byte, error) {
		return sjson.SetBytes(data, listPath(list), items)
	})
}

// Delete removes list under key.
func (s *Store) Delete(key, list string) error {
	return s.update(key, func(data []byte) ([]byte, error) {
		return sjson.DeleteBytes(data, listPath(list))
	})
}

// Lists returns the names of the lists stored under key, sorted.
func (s *Store) Lists(key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(key)
	if err != nil || data == nil {
		return nil, err
	}

	var names []string
	gjson.GetBytes(data, listsField).ForEach(func(k, v gjson.Result) bool {
		if v.IsArray() {
			names = append(names, k.String())
		}
		return true
	})
	sort.Strings(names)
	return names, nil
}

func (s *Store) update(key string, fn func([]byte) ([]byte, error)) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read(key)
	if err != nil {
		return err
	}
	if data == nil {
		data, err = sjson.SetBytes([]byte(`{}`), "key", key)
		if err != nil {
			return err
		}
		data, err = sjson.SetRawBytes(data, listsField, []byte(`{}`))
		if err != nil {
			return err
		}
	}

	data, err = fn(data)
	if err != nil {
		return fmt.Errorf("update %s: %w", s.Path(key), err)
	}
	return s.write(key, pretty.Pretty(data))
}

// read returns the data file of key, or nil when it does not exist.
func (s *Store) read(key string) ([]byte, error) {
	path := s.Path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrCorrupt)
	}
	return data, nil
}

// write replaces the data file atomically.
func (s *Store) write(key string, data []byte) error {
	path := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, ".keymarks-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.log.Debug("saved %s", path)
	return nil
}

func listPath(list string) string {
	return listsField + "." + gjson.Escape(list)
}
