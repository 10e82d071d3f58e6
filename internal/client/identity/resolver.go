package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/iudanet/khural/internal/client/overrides"
	"github.com/iudanet/khural/internal/models"
)

var (
	// ErrNotLocalID мигрировать можно только локальный id
	ErrNotLocalID = errors.New("id is not a local id")
	// ErrMissingServerID сервер вернул сущность без id
	ErrMissingServerID = errors.New("server entity has no id")
)

// Resolver выдает локальные id и переносит переопределения
// с локального id на серверный после успешного создания
type Resolver struct {
	store  *overrides.Store
	gen    *Generator
	logger *slog.Logger
}

// NewResolver создает новый Resolver
func NewResolver(store *overrides.Store, gen *Generator, logger *slog.Logger) *Resolver {
	if gen == nil {
		gen = NewGenerator()
	}
	return &Resolver{
		store:  store,
		gen:    gen,
		logger: logger,
	}
}

// NewLocalID возвращает новый локальный id
func (r *Resolver) NewLocalID() string {
	return r.gen.NewLocalID()
}

// Migrate убирает localID из created и updatedById. Поля патча localID, которые
// серверная сущность еще не отражает (правки, сделанные после оптимистичного
// создания), переносятся в updatedById[serverID]. serverID не помечается удаленным.
func (r *Resolver) Migrate(ctx context.Context, entityType models.EntityType, localID string, serverEntity models.Entity) error {
	if !IsLocalID(localID) {
		return fmt.Errorf("migrate %q: %w", localID, ErrNotLocalID)
	}
	serverID := serverEntity.ID()
	if serverID == "" {
		return fmt.Errorf("migrate %q: %w", localID, ErrMissingServerID)
	}

	var carried int
	r.store.Update(ctx, entityType, func(rec *models.OverrideRecord) {
		rec.RemoveCreated(localID)
		rec.RemoveTombstone(localID)

		patch, ok := rec.UpdatedByID[localID]
		if !ok {
			return
		}
		rec.ClearPatch(localID)

		pending := unreflected(patch, serverEntity)
		carried = len(pending)
		if carried > 0 {
			rec.MergePatch(serverID, pending)
		}
	})

	r.logger.Info("Local entity migrated to server id",
		"entity_type", entityType.String(),
		"local_id", localID,
		"server_id", serverID,
		"carried_fields", carried)
	return nil
}

// unreflected возвращает поля патча, значения которых отличаются от серверных
func unreflected(patch, server models.Entity) models.Entity {
	out := make(models.Entity)
	for k, v := range patch {
		if k == models.IDField {
			continue
		}
		if sv, ok := server[k]; ok && sameValue(sv, v) {
			continue
		}
		out[k] = v
	}
	return out
}

// sameValue сравнивает значения, пришедшие из разных JSON-источников:
// числа сравниваются по строковому представлению (json.Number против float64)
func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	return isNumber(a) && isNumber(b) && models.IDString(a) == models.IDString(b)
}

func isNumber(v any) bool {
	switch v.(type) {
	case json.Number, float64, float32, int, int32, int64, uint, uint32, uint64:
		return true
	}
	return false
}
