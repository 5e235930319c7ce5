// Package document defines the key/document store contract the habit core
// runs against. Documents are JSON blobs addressed by slash-separated paths
// (`users/{uid}/habits/{habitID}`); providers supply per-document CRUD with
// partial updates, atomic multi-document batches, and a live change feed.
package document

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a document does not exist at the given path.
var ErrNotFound = errors.New("document not found")

// Document is a stored JSON blob together with its full path.
type Document struct {
	Path string
	Data []byte
}

// ID returns the final path segment, the document's id within its collection.
func (d Document) ID() string {
	idx := strings.LastIndexByte(d.Path, '/')
	if idx < 0 {
		return d.Path
	}
	return d.Path[idx+1:]
}

// Provider is the persistence contract for document collections.
type Provider interface {
	// Lifecycle
	Init() error
	Close() error

	// Documents
	Get(path string) ([]byte, error)
	Set(path string, data []byte) error
	// Patch merges the given fields into the stored JSON object without
	// touching other fields. It fails with ErrNotFound if no document
	// exists at the path.
	Patch(path string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an
	// error.
	Delete(path string) error
	// List returns every document whose path starts with prefix + "/".
	List(prefix string) ([]Document, error)

	// Apply performs the batch atomically: either every operation takes
	// effect or none do.
	Apply(batch Batch) error

	// Watch streams change events until ctx is cancelled. One event is
	// delivered per mutated collection; subscribers reload the affected
	// collection snapshot. The channel is closed once ctx is done.
	Watch(ctx context.Context) (<-chan Event, error)
}

// Event is emitted by Provider.Watch when a collection's content changes.
type Event struct {
	// Collection is the path prefix of the mutated collection, e.g.
	// `users/u1/habits`.
	Collection string
}

// OpKind discriminates batch operations.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is a single batched write.
type Op struct {
	Kind OpKind
	Path string
	Data []byte // nil for OpDelete
}

// Batch is an ordered set of writes applied atomically.
type Batch []Op

// Put appends a create-or-replace operation.
func (b Batch) Put(path string, data []byte) Batch {
	return append(b, Op{Kind: OpPut, Path: path, Data: data})
}

// Remove appends a delete operation.
func (b Batch) Remove(path string) Batch {
	return append(b, Op{Kind: OpDelete, Path: path})
}

// CollectionOf returns the collection prefix for a document path, i.e. the
// path minus its final segment.
func CollectionOf(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return path
	}
	return path[:idx]
}
