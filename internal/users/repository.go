package users

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

// Repository maps user documents in the users collection to typed records.
type Repository struct {
	col docstore.Collection
	now func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{
		col: store.Collection(docstore.CollectionUsers),
		now: time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (r *Repository) SetClock(now func() time.Time) { r.now = now }

// Create validates and persists a new user record. The caller-supplied ID
// and timestamps are ignored; createdAt/updatedAt are stamped date-only.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	if u.Email == "" {
		return nil, ErrMissingEmail
	}
	if u.FirstName == "" {
		return nil, ErrMissingFirstName
	}
	if u.LastName == "" {
		return nil, ErrMissingLastName
	}
	if !ValidRole(u.Role) {
		return nil, ErrInvalidRole
	}

	doc := ToDoc(u)
	today := record.DateOnly(r.now())
	doc["createdAt"] = today
	doc["updatedAt"] = today

	id, err := r.col.Add(ctx, doc)
	if err != nil {
		log.Printf("users: failed to create user record: %v", err)
		return nil, err
	}

	created := *u
	created.ID = id
	created.CreatedAt = today
	created.UpdatedAt = today
	return &created, nil
}

// GetByID fetches a user record by document id.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	doc, err := r.col.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return FromDoc(doc), nil
}

// GetByAuthID resolves the application record for an identity-provider uid.
func (r *Repository) GetByAuthID(ctx context.Context, authID string) (*User, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{{Field: "authId", Value: authID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query user by auth id: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return FromDoc(docs[0]), nil
}

// UpdateProfile merges the editable name fields and re-stamps updatedAt.
// Role and role-specific fields are never touched here.
func (r *Repository) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*User, error) {
	partial := docstore.Document{
		"updatedAt": record.DateOnly(r.now()),
	}
	if req.FirstName != "" {
		partial["firstName"] = req.FirstName
	}
	if req.LastName != "" {
		partial["lastName"] = req.LastName
	}

	if err := r.col.Merge(ctx, id, partial); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Printf("users: failed to update profile %s: %v", id, err)
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// DisplayNameByID resolves a user's cached display name, falling back to a
// placeholder when the reference dangles.
func (r *Repository) DisplayNameByID(ctx context.Context, id string) string {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "Bilinmeyen Kullanıcı"
	}
	return u.DisplayName()
}
