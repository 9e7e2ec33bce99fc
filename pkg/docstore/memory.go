package docstore

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local seeding.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}

	// FailPaths maps collection or document paths to the error their reads
	// should return, letting tests exercise degraded-fetch policies.
	FailPaths map[string]error
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: map[string]map[string]map[string]interface{}{},
		FailPaths:   map[string]error{},
	}
}

// Put inserts or replaces a document under the collection path.
func (s *MemoryStore) Put(collection, docID string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[collection]
	if !ok {
		coll = map[string]map[string]interface{}{}
		s.collections[collection] = coll
	}
	coll[docID] = fields
}

// QueryEquals implements Store.
func (s *MemoryStore) QueryEquals(ctx context.Context, collection, field, value string) ([]Document, error) {
	if err := s.failure(collection); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []Document
	for _, id := range s.sortedIDs(collection) {
		fields := s.collections[collection][id]
		if v, ok := fields[field].(string); ok && v == value {
			docs = append(docs, Document{ID: id, Fields: fields})
		}
	}
	return docs, nil
}

// GetDocument implements Store.
func (s *MemoryStore) GetDocument(ctx context.Context, path string) (Document, bool, error) {
	if err := s.failure(path); err != nil {
		return Document{}, false, err
	}
	collection, docID, err := splitDocumentPath(path)
	if err != nil {
		return Document{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][docID]
	if !ok {
		return Document{}, false, nil
	}
	return Document{ID: docID, Fields: fields}, true, nil
}

// ListCollection implements Store.
func (s *MemoryStore) ListCollection(ctx context.Context, path string) ([]Document, error) {
	if err := s.failure(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sortedIDs(path)
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, Document{ID: id, Fields: s.collections[path][id]})
	}
	return docs, nil
}

func (s *MemoryStore) sortedIDs(collection string) []string {
	ids := make([]string, 0, len(s.collections[collection]))
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *MemoryStore) failure(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err, ok := s.FailPaths[path]; ok {
		return err
	}
	return nil
}
