// Package diskv provides a file-backed document.Provider. Each document is
// a JSON file under the base path, mirroring the document path as a
// directory hierarchy, with fsnotify driving the change feed.
package diskv

import (
	"fmt"
	"os"
	"strings"

	"github.com/peterbourgon/diskv/v3"

	"github.com/julianstephens/umbral/internal/document"
)

const cacheSizeMax = 1024 * 1024 // 1MB

// Store is a diskv-backed provider. Writes are visible to other processes
// sharing the base path; the Watch feed picks up both local and external
// mutations through the filesystem.
type Store struct {
	d        *diskv.Diskv
	basePath string
}

// New returns a provider rooted at basePath. The directory is created on
// Init.
func New(basePath string) *Store {
	return &Store{
		d: diskv.New(diskv.Options{
			BasePath:          basePath,
			AdvancedTransform: keyToPathTransform,
			InverseTransform:  pathToKeyTransform,
			CacheSizeMax:      cacheSizeMax,
		}),
		basePath: basePath,
	}
}

// keyToPathTransform maps a document path onto the directory tree:
// `users/u1/habits/h1` becomes users/u1/habits/h1.json.
func keyToPathTransform(key string) *diskv.PathKey {
	parts := strings.Split(key, "/")
	last := len(parts) - 1
	return &diskv.PathKey{
		Path:     parts[:last],
		FileName: parts[last] + ".json",
	}
}

func pathToKeyTransform(pk *diskv.PathKey) string {
	name := strings.TrimSuffix(pk.FileName, ".json")
	if len(pk.Path) == 0 {
		return name
	}
	return strings.Join(pk.Path, "/") + "/" + name
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.basePath, 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Get(path string) ([]byte, error) {
	data, err := s.d.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *Store) Set(path string, data []byte) error {
	return s.d.Write(path, data)
}

func (s *Store) Patch(path string, fields map[string]any) error {
	data, err := s.Get(path)
	if err != nil {
		return err
	}
	merged, err := document.MergePatch(data, fields)
	if err != nil {
		return err
	}
	return s.d.Write(path, merged)
}

func (s *Store) Delete(path string) error {
	if !s.d.Has(path) {
		return nil
	}
	err := s.d.Erase(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Store) List(prefix string) ([]document.Document, error) {
	var docs []document.Document
	for key := range s.d.KeysPrefix(prefix+"/", nil) {
		data, err := s.d.Read(key)
		if err != nil {
			// The file may have been removed between listing and reading.
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		docs = append(docs, document.Document{Path: key, Data: data})
	}
	return docs, nil
}

// Apply emulates atomicity on a filesystem store: prior values are captured
// first and restored if any operation fails partway.
func (s *Store) Apply(batch document.Batch) error {
	type undo struct {
		path    string
		data    []byte
		existed bool
	}

	undos := make([]undo, 0, len(batch))
	for _, op := range batch {
		prev, err := s.Get(op.Path)
		if err != nil && err != document.ErrNotFound {
			return err
		}
		undos = append(undos, undo{path: op.Path, data: prev, existed: err == nil})
	}

	rollback := func(upTo int) {
		for i := upTo - 1; i >= 0; i-- {
			u := undos[i]
			if u.existed {
				_ = s.d.Write(u.path, u.data)
			} else {
				_ = s.d.Erase(u.path)
			}
		}
	}

	for i, op := range batch {
		var err error
		switch op.Kind {
		case document.OpPut:
			err = s.d.Write(op.Path, op.Data)
		case document.OpDelete:
			err = s.Delete(op.Path)
		}
		if err != nil {
			rollback(i)
			return fmt.Errorf("batch failed at %s: %w", op.Path, err)
		}
	}
	return nil
}
