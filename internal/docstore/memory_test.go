package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_AddAssignsUniqueIDs(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		id, err := col.Add(ctx, Document{"n": float64(i)})
		if err != nil {
			t.Fatalf("Add failed: %v", err)
		}
		if id == "" {
			t.Fatal("Expected non-empty id")
		}
		if seen[id] {
			t.Fatalf("Duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestMemoryStore_GetInjectsID(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	id, err := col.Add(ctx, Document{"firstName": "Ayşe"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	doc, err := col.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["id"] != id {
		t.Errorf("Expected id %s in document, got %v", id, doc["id"])
	}
	if doc["firstName"] != "Ayşe" {
		t.Errorf("Expected firstName to round-trip, got %v", doc["firstName"])
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)

	_, err := col.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_, err = col.Get(context.Background(), "")
	if !errors.Is(err, ErrEmptyID) {
		t.Errorf("Expected ErrEmptyID, got %v", err)
	}
}

func TestMemoryStore_QueryFilterAndOrder(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionAppointments)
	ctx := context.Background()

	rows := []Document{
		{"doctorId": "d1", "date": "2025-05-01"},
		{"doctorId": "d1", "date": "2025-06-15"},
		{"doctorId": "d2", "date": "2025-06-01"},
		{"doctorId": "d1", "date": "2025-06-01"},
	}
	for _, row := range rows {
		if _, err := col.Add(ctx, row); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	docs, err := col.Query(ctx, Query{
		Filters: []Filter{{Field: "doctorId", Value: "d1"}},
		OrderBy: &Order{Field: "date", Desc: true},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents for d1, got %d", len(docs))
	}
	want := []string{"2025-06-15", "2025-06-01", "2025-05-01"}
	for i, doc := range docs {
		if doc["date"] != want[i] {
			t.Errorf("Position %d: expected date %s, got %v", i, want[i], doc["date"])
		}
	}
}

func TestMemoryStore_QueryNullFieldNeverMatches(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	if _, err := col.Add(ctx, Document{"notes": nil}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	docs, err := col.Query(ctx, Query{
		Filters: []Filter{{Field: "notes", Value: ""}},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("Expected null field to never match an equality filter, got %d docs", len(docs))
	}
}

func TestMemoryStore_MergeOverlaysTopLevel(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	id, err := col.Add(ctx, Document{"firstName": "Ayşe", "lastName": "Yılmaz"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := col.Merge(ctx, id, Document{"firstName": "Fatma"}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}

	doc, err := col.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["firstName"] != "Fatma" {
		t.Errorf("Expected merged firstName Fatma, got %v", doc["firstName"])
	}
	if doc["lastName"] != "Yılmaz" {
		t.Errorf("Expected untouched lastName to survive, got %v", doc["lastName"])
	}
}

func TestMemoryStore_SetReplacesWholesale(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	id, err := col.Add(ctx, Document{"firstName": "Ayşe", "lastName": "Yılmaz"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := col.Set(ctx, id, Document{"firstName": "Fatma"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	doc, err := col.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["firstName"] != "Fatma" {
		t.Errorf("Expected replaced firstName Fatma, got %v", doc["firstName"])
	}
	if _, ok := doc["lastName"]; ok {
		t.Error("Full replace should drop fields absent from the new document")
	}

	if err := col.Set(ctx, "missing", Document{"x": "y"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing id, got %v", err)
	}
}

func TestMemoryStore_MergeMissingID(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)

	err := col.Merge(context.Background(), "missing", Document{"x": "y"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	id, err := col.Add(ctx, Document{"x": "y"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := col.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := col.Delete(ctx, id); err != nil {
		t.Errorf("Expected second delete to be a no-op, got %v", err)
	}

	if _, err := col.Get(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected document gone, got %v", err)
	}
}

func TestMemoryStore_WriteTimeout(t *testing.T) {
	store := NewMemoryStore()
	store.WriteTimeout = 10 * time.Millisecond
	store.WriteDelay = 100 * time.Millisecond
	col := store.Collection(CollectionUsers)

	_, err := col.Add(context.Background(), Document{"x": "y"})
	if !errors.Is(err, ErrWriteTimeout) {
		t.Errorf("Expected ErrWriteTimeout, got %v", err)
	}
}

func TestMemoryStore_AddSanitizesUndefined(t *testing.T) {
	store := NewMemoryStore()
	col := store.Collection(CollectionUsers)
	ctx := context.Background()

	id, err := col.Add(ctx, Document{"notes": Undefined})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	doc, err := col.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc["notes"] != nil {
		t.Errorf("Expected Undefined persisted as nil, got %v", doc["notes"])
	}
}
