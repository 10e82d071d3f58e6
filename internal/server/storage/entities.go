package storage

import (
	"context"

	"github.com/iudanet/khural/internal/models"
)

//go:generate moq -out entitystorage_mock.go . EntityStorage

// EntityStorage defines interface for admin entities persistence.
// Ids are assigned by storage: positive integers, sequential per entity type.
type EntityStorage interface {
	// ListEntities returns all entities of the type ordered by id
	// Returns empty slice if no entities found
	ListEntities(ctx context.Context, entityType models.EntityType) ([]models.Entity, error)

	// GetEntity retrieves a single entity by id
	// Returns ErrEntityNotFound if entity doesn't exist
	GetEntity(ctx context.Context, entityType models.EntityType, id string) (models.Entity, error)

	// CreateEntity stores a new entity under a freshly assigned id
	// Any "id" field of the payload is ignored
	CreateEntity(ctx context.Context, entityType models.EntityType, entity models.Entity) (models.Entity, error)

	// UpdateEntity applies a shallow patch: each patch field replaces the stored one
	// Returns ErrEntityNotFound if entity doesn't exist
	UpdateEntity(ctx context.Context, entityType models.EntityType, id string, patch models.Entity) (models.Entity, error)

	// DeleteEntity removes the entity
	// Returns ErrEntityNotFound if entity doesn't exist
	DeleteEntity(ctx context.Context, entityType models.EntityType, id string) error
}
