package overrides

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/khural/internal/client/storage"
	"github.com/iudanet/khural/internal/models"
)

// BaseSnapshot последний успешно загруженный серверный список типа
type BaseSnapshot struct {
	SavedAt time.Time       `json:"savedAt"`
	Items   []models.Entity `json:"items"`
}

// SnapshotKey ключ снимка серверного списка, например "khural_deputies_base_v1"
func SnapshotKey(entityType models.EntityType) string {
	return "khural_" + string(entityType) + "_base_v1"
}

// Snapshots кэш последних серверных списков. Как и Store, работает
// "по возможности": ошибки логируются и не возвращаются.
type Snapshots struct {
	kv     storage.KVStorage
	logger *slog.Logger
	now    func() time.Time
}

// NewSnapshots создает кэш снимков поверх бэкенда ключ/значение
func NewSnapshots(kv storage.KVStorage, logger *slog.Logger) *Snapshots {
	return &Snapshots{
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
}

// Save сохраняет серверный список типа
func (s *Snapshots) Save(ctx context.Context, entityType models.EntityType, items []models.Entity) {
	if items == nil {
		items = []models.Entity{}
	}
	data, err := json.Marshal(BaseSnapshot{SavedAt: s.now().UTC(), Items: items})
	if err != nil {
		s.logger.Warn("Failed to serialize base snapshot", "entity_type", entityType.String(), "error", err)
		return
	}
	if err := s.kv.Put(ctx, SnapshotKey(entityType), data); err != nil {
		s.logger.Warn("Failed to save base snapshot", "entity_type", entityType.String(), "error", err)
	}
}

// Load возвращает сохраненный серверный список; false если его нет или он испорчен
func (s *Snapshots) Load(ctx context.Context, entityType models.EntityType) (*BaseSnapshot, bool) {
	data, err := s.kv.Get(ctx, SnapshotKey(entityType))
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("Failed to read base snapshot", "entity_type", entityType.String(), "error", err)
		}
		return nil, false
	}

	var raw struct {
		SavedAt time.Time       `json:"savedAt"`
		Items   json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("Unparseable base snapshot", "entity_type", entityType.String(), "error", err)
		return nil, false
	}

	items, err := models.DecodeEntities(raw.Items)
	if err != nil {
		s.logger.Warn("Unparseable base snapshot items", "entity_type", entityType.String(), "error", err)
		return nil, false
	}

	return &BaseSnapshot{SavedAt: raw.SavedAt, Items: items}, true
}
