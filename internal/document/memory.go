package document

import (
	"context"
	"sync"
)

// Memory is an in-process Provider backed by a map. It is the reference
// implementation for provider semantics and the test double for the habit
// store.
type Memory struct {
	mu   sync.Mutex
	docs map[string][]byte
	subs map[int]chan Event
	next int
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]byte),
		subs: make(map[int]chan Event),
	}
}

func (m *Memory) Init() error  { return nil }
func (m *Memory) Close() error { return nil }

func (m *Memory) Get(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Set(path string, data []byte) error {
	m.mu.Lock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.docs[path] = stored
	m.mu.Unlock()
	m.notify(CollectionOf(path))
	return nil
}

func (m *Memory) Patch(path string, fields map[string]any) error {
	m.mu.Lock()
	data, ok := m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	merged, err := MergePatch(data, fields)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.docs[path] = merged
	m.mu.Unlock()
	m.notify(CollectionOf(path))
	return nil
}

func (m *Memory) Delete(path string) error {
	m.mu.Lock()
	_, existed := m.docs[path]
	delete(m.docs, path)
	m.mu.Unlock()
	if existed {
		m.notify(CollectionOf(path))
	}
	return nil
}

func (m *Memory) List(prefix string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []Document
	want := prefix + "/"
	for path, data := range m.docs {
		if len(path) > len(want) && path[:len(want)] == want {
			out := make([]byte, len(data))
			copy(out, data)
			docs = append(docs, Document{Path: path, Data: out})
		}
	}
	return docs, nil
}

func (m *Memory) Apply(batch Batch) error {
	m.mu.Lock()
	touched := make(map[string]bool)
	for _, op := range batch {
		switch op.Kind {
		case OpPut:
			stored := make([]byte, len(op.Data))
			copy(stored, op.Data)
			m.docs[op.Path] = stored
		case OpDelete:
			delete(m.docs, op.Path)
		}
		touched[CollectionOf(op.Path)] = true
	}
	m.mu.Unlock()
	for collection := range touched {
		m.notify(collection)
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context) (<-chan Event, error) {
	m.mu.Lock()
	id := m.next
	m.next++
	ch := make(chan Event, 64)
	m.subs[id] = ch
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (m *Memory) notify(collection string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- Event{Collection: collection}:
		default:
			// Subscriber is not draining; drop rather than block the
			// writer. Snapshots are reloaded per event, so a dropped
			// event is recovered by the next one.
		}
	}
}
