// Package coordinator выполняет записи сущностей на сервер и при неудаче
// откатывается к локальным переопределениям.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/iudanet/khural/internal/client/identity"
	"github.com/iudanet/khural/internal/client/overrides"
	"github.com/iudanet/khural/internal/models"
)

//go:generate moq -out entityapi_mock.go . EntityAPI

// EntityAPI REST API одного типа сущностей
type EntityAPI interface {
	List(ctx context.Context) ([]models.Entity, error)
	Create(ctx context.Context, entity models.Entity) (models.Entity, error)
	Update(ctx context.Context, id string, patch models.Entity) (models.Entity, error)
	Remove(ctx context.Context, id string) error
}

// Coordinator координатор записей одного типа сущностей.
// Единственный источник сообщений для пользователя о результате записи.
type Coordinator struct {
	api        EntityAPI
	store      *overrides.Store
	resolver   *identity.Resolver
	snapshots  *overrides.Snapshots
	logger     *slog.Logger
	entityType models.EntityType
}

// Option настраивает Coordinator
type Option func(*Coordinator)

// WithSnapshots сохраняет каждый успешно загруженный серверный список
func WithSnapshots(s *overrides.Snapshots) Option {
	return func(c *Coordinator) {
		c.snapshots = s
	}
}

// New создает координатор для типа entityType
func New(entityType models.EntityType, api EntityAPI, store *overrides.Store, resolver *identity.Resolver, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:        api,
		store:      store,
		resolver:   resolver,
		logger:     logger.With("entity_type", entityType.String()),
		entityType: entityType,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EntityType возвращает тип сущностей координатора
func (c *Coordinator) EntityType() models.EntityType {
	return c.entityType
}

// Load загружает серверный список. Ошибки не перехватываются.
func (c *Coordinator) Load(ctx context.Context) ([]models.Entity, error) {
	items, err := c.api.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", c.entityType, err)
	}
	if c.snapshots != nil {
		c.snapshots.Save(ctx, c.entityType, items)
	}
	return items, nil
}

// SubmitCreate создает сущность на сервере. Если body несет локальный id
// (повторное сохранение локальной строки), после успеха локальная запись
// мигрирует на серверный id. При неудаче сущность сохраняется в created.
func (c *Coordinator) SubmitCreate(ctx context.Context, body models.Entity) Result {
	localID := ""
	payload := body.Clone()
	if payload == nil {
		payload = models.Entity{}
	}
	if id := payload.ID(); identity.IsLocalID(id) {
		localID = id
		delete(payload, models.IDField)
	}

	server, err := c.api.Create(ctx, payload)
	if err == nil {
		if localID != "" {
			if err := c.resolver.Migrate(ctx, c.entityType, localID, server); err != nil {
				c.logger.Error("Failed to migrate local entity", "local_id", localID, "error", err)
			}
		}
		c.retireReusedTombstone(ctx, server.ID())
		c.logger.Info("Entity created", "id", server.ID())
		return Result{
			Op:      OpCreate,
			State:   StateSucceeded,
			Kind:    KindNone,
			Entity:  server,
			ID:      server.ID(),
			Message: MsgSaved,
		}
	}

	kind := Classify(err)
	if kind == KindNotFound {
		// 404 на коллекции не говорит о судьбе сущности: сервер просто не принял запрос
		kind = KindServer
	}
	if localID == "" {
		localID = c.resolver.NewLocalID()
	}
	local := payload.Clone()
	local[models.IDField] = localID

	c.store.Update(ctx, c.entityType, func(rec *models.OverrideRecord) {
		rec.RemoveTombstone(localID)
		rec.UpsertCreated(local)
	})

	c.logger.Warn("Create failed, entity saved locally",
		"local_id", localID,
		"kind", kind.String(),
		"error", err)

	return Result{
		Op:      OpCreate,
		State:   StateFailedFallback,
		Kind:    kind,
		Entity:  local,
		ID:      localID,
		Message: fallbackMessage(kind, err),
		Err:     err,
	}
}

// retireReusedTombstone снимает надгробие с id, который сервер только что выдал
// новой сущности: иначе подтвержденная сущность навсегда скрыта из списка.
func (c *Coordinator) retireReusedTombstone(ctx context.Context, id string) {
	if id == "" || !c.store.Read(ctx, c.entityType).IsDeleted(id) {
		return
	}
	c.store.Update(ctx, c.entityType, func(rec *models.OverrideRecord) {
		rec.RemoveTombstone(id)
	})
	c.logger.Warn("Server assigned a previously deleted id, tombstone removed", "id", id)
}

// SubmitUpdate применяет патч на сервере. При неудаче патч накапливается
// в updatedById по ключам; 404 превращает сущность в надгробие.
// Сущности с локальным id сервер не знает, поэтому патч сразу сохраняется локально.
func (c *Coordinator) SubmitUpdate(ctx context.Context, id string, patch models.Entity) Result {
	if identity.IsLocalID(id) {
		c.store.Update(ctx, c.entityType, func(rec *models.OverrideRecord) {
			rec.MergePatch(id, patch)
		})
		return Result{
			Op:      OpUpdate,
			State:   StateFailedFallback,
			Kind:    KindLocalOnly,
			ID:      id,
			Message: MsgLocalOnly,
		}
	}

	server, err := c.api.Update(ctx, id, patch)
	if err == nil {
		c.store.Update(ctx, c.entityType, func(rec *models.OverrideRecord) {
			rec.ClearPatch(id)
		})
		c.logger.Info("Entity updated", "id", id)
		return Result{
			Op:      OpUpdate,
			State:   StateSucceeded,
			Kind:    KindNone,
			Entity:  server,
			ID:      id,
			Message: MsgSaved,
		}
	}

	kind := Classify(err)
	c.store.Update(ctx, c.entityType, func(rec *models.OverrideRecord) {
		if kind == KindNotFound {
			rec.Tombstone(id)
			return
		}
		rec.MergePatch(id, patch)
	})

	c.logger.Warn("Update failed, change saved locally",
		"id", id,
		"kind", kind.String(),
		"error", err)

	return Result{
		Op:      OpUpdate,
		State:   StateFailedFallback,
		Kind:    kind,
		ID:      id,
		Message: fallbackMessage(kind, err),
		Err:     err,
	}
}

// SubmitDelete удаляет сущность на сервере. Независимо от ответа сервера
// id становится надгробием, чтобы строка исчезла из списка администратора.
func (c *Coordinator) SubmitDelete(ctx context.Context, id string) Result {
	result := Result{
		Op:      OpDelete,
		State:   StateSucceeded,
		Kind:    KindNone,
		ID:      id,
		Message: MsgDeleted,
	}

	if identity.IsLocalID(id) {
		result.Kind = KindLocalOnly
		result.Message = MsgLocalOnlyDeleted
	} else if err := c.api.Remove(ctx, id); err != nil {
		result.Err = err
		result.Kind = Classify(err)
		result.State = StateFailedFallback
		if result.Kind == KindNotFound {
			result.Message = MsgAlreadyDeleted
		} else {
			result.Message = MsgDeletePending
			result.PendingDelete = true
		}
		c.logger.Warn("Delete failed, entity hidden locally",
			"id", id,
			"kind", result.Kind.String(),
			"error", err)
	}

	c.store.Update(ctx, c.entityType, func(rec *models.OverrideRecord) {
		rec.Tombstone(id)
	})

	return result
}

// Resync по явному запросу пользователя повторяет отправку всех локальных
// изменений: каждую сущность из created и каждый патч серверной сущности.
// Фоновых повторов нет.
func (c *Coordinator) Resync(ctx context.Context) []Result {
	rec := c.store.Read(ctx, c.entityType)
	deleted := rec.DeletedSet()
	results := make([]Result, 0, len(rec.Created)+len(rec.UpdatedByID))

	for _, e := range rec.Created {
		id := e.ID()
		if _, gone := deleted[id]; gone {
			continue
		}
		body := e
		if patch, ok := rec.UpdatedByID[id]; ok {
			body = e.Apply(patch)
		}
		results = append(results, c.SubmitCreate(ctx, body))
	}

	for _, id := range sortedIDs(rec.UpdatedByID) {
		if _, gone := deleted[id]; gone || identity.IsLocalID(id) {
			continue
		}
		results = append(results, c.SubmitUpdate(ctx, id, rec.UpdatedByID[id]))
	}

	c.logger.Info("Resync finished", "attempted", len(results))
	return results
}

func sortedIDs(m map[string]models.Entity) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
