// package models defines the data model for the mixtape matching and mix service
package models

import (
	"time"
)

// Model is satisfied by every persisted record: [PersistedPlaylist] and [MixRun].
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// SoftDeletable models stay in their table after Delete, with DeletedAt set.
// Repositories skip them on Get and List.
type SoftDeletable interface {
	Model
	DeletedAt() *time.Time
}

// Repository is the CRUD surface shared by the SQLite repositories.
//
// List criteria are repository specific; unknown keys are ignored.
type Repository[T SoftDeletable] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}
