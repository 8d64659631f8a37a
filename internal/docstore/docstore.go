package docstore

import (
	"context"
	"errors"
	"time"
)

// Collection names used by the application.
const (
	CollectionUsers        = "users"
	CollectionAppointments = "appointments"
	CollectionMeasurements = "measurements"
	CollectionDietPlans    = "diet_plans"
)

// DefaultWriteTimeout bounds every write operation. Reads are not guarded.
const DefaultWriteTimeout = 10 * time.Second

var (
	ErrNotFound     = errors.New("document not found")
	ErrWriteTimeout = errors.New("write operation timed out")
	ErrEmptyID      = errors.New("document id is required")
)

// Document is a loosely typed record as stored in a collection. The store
// imposes no schema; callers map documents to typed records at the boundary.
type Document map[string]interface{}

// Filter is an equality condition on a top-level document field. The store
// supports any number of equality filters but repositories issue at most one
// and refine the rest in-process (two-stage query contract).
type Filter struct {
	Field string
	Value string
}

// Order is a single-field store-side ordering. Multi-field ordering is always
// done by the caller after the fetch.
type Order struct {
	Field string
	Desc  bool
}

// Query describes a collection read: equality filters plus at most one
// store-side ordering. There is no limit; the full filtered set is returned.
type Query struct {
	Filters []Filter
	OrderBy *Order
}

// Collection is a handle to one named collection.
type Collection interface {
	// Add sanitizes doc, assigns a generated id and persists it.
	Add(ctx context.Context, doc Document) (string, error)
	Get(ctx context.Context, id string) (Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	// Set replaces the stored document wholesale.
	Set(ctx context.Context, id string, doc Document) error
	// Merge overlays partial onto the stored document (last write wins).
	Merge(ctx context.Context, id string, partial Document) error
	Delete(ctx context.Context, id string) error
}

// Store is a connection to the document database.
type Store interface {
	Collection(name string) Collection
	Close() error
}

// withWriteTimeout runs fn under the write deadline and maps a deadline
// expiry to ErrWriteTimeout so callers see a timeout instead of hanging.
func withWriteTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		d = DefaultWriteTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	err := fn(wctx)
	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(wctx.Err(), context.DeadlineExceeded)) {
		return ErrWriteTimeout
	}
	return err
}
