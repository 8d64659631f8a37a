package docstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same query semantics as the
// PostgreSQL implementation. Used by unit tests.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document

	// WriteTimeout bounds writes like the real store. WriteDelay, when set,
	// makes every write take that long so the timeout path is testable.
	WriteTimeout time.Duration
	WriteDelay   time.Duration
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections:  make(map[string]map[string]Document),
		WriteTimeout: DefaultWriteTimeout,
	}
}

func (s *MemoryStore) Collection(name string) Collection {
	return &memoryCollection{store: s, name: name}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) bucket(name string) map[string]Document {
	if s.collections[name] == nil {
		s.collections[name] = make(map[string]Document)
	}
	return s.collections[name]
}

type memoryCollection struct {
	store *MemoryStore
	name  string
}

func (c *memoryCollection) write(ctx context.Context, fn func()) error {
	return withWriteTimeout(ctx, c.store.WriteTimeout, func(wctx context.Context) error {
		if c.store.WriteDelay > 0 {
			select {
			case <-time.After(c.store.WriteDelay):
			case <-wctx.Done():
				return wctx.Err()
			}
		}
		c.store.mu.Lock()
		defer c.store.mu.Unlock()
		fn()
		return nil
	})
}

func (c *memoryCollection) Add(ctx context.Context, doc Document) (string, error) {
	id := uuid.New().String()
	clean := Sanitize(doc)
	err := c.write(ctx, func() {
		c.store.bucket(c.name)[id] = copyDoc(clean)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *memoryCollection) Get(ctx context.Context, id string) (Document, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	doc, ok := c.store.collections[c.name][id]
	if !ok {
		return nil, ErrNotFound
	}
	out := copyDoc(doc)
	out["id"] = id
	return out, nil
}

func (c *memoryCollection) Query(ctx context.Context, q Query) ([]Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	var docs []Document
	for id, doc := range c.store.collections[c.name] {
		match := true
		for _, f := range q.Filters {
			if text, ok := fieldText(doc[f.Field]); !ok || text != f.Value {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		out := copyDoc(doc)
		out["id"] = id
		docs = append(docs, out)
	}

	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Desc
		sort.SliceStable(docs, func(i, j int) bool {
			a, _ := fieldText(docs[i][field])
			b, _ := fieldText(docs[j][field])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	return docs, nil
}

func (c *memoryCollection) Set(ctx context.Context, id string, doc Document) error {
	if id == "" {
		return ErrEmptyID
	}
	clean := Sanitize(doc)
	var missing bool
	err := c.write(ctx, func() {
		bucket := c.store.bucket(c.name)
		if _, ok := bucket[id]; !ok {
			missing = true
			return
		}
		bucket[id] = copyDoc(clean)
	})
	if err != nil {
		return err
	}
	if missing {
		return ErrNotFound
	}
	return nil
}

func (c *memoryCollection) Merge(ctx context.Context, id string, partial Document) error {
	if id == "" {
		return ErrEmptyID
	}
	clean := Sanitize(partial)
	var missing bool
	err := c.write(ctx, func() {
		bucket := c.store.bucket(c.name)
		doc, ok := bucket[id]
		if !ok {
			missing = true
			return
		}
		// Top-level overlay, matching jsonb || semantics.
		for k, v := range clean {
			doc[k] = v
		}
	})
	if err != nil {
		return err
	}
	if missing {
		return ErrNotFound
	}
	return nil
}

func (c *memoryCollection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return c.write(ctx, func() {
		delete(c.store.bucket(c.name), id)
	})
}

// fieldText renders a document value the way doc->>'field' would: text for
// strings/numbers/bools, no match for null or missing values.
func fieldText(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func copyDoc(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Document:
		return copyDoc(t)
	case map[string]interface{}:
		return copyDoc(Document(t))
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
