package models

import (
	"encoding/json"
	"fmt"
)

// OverrideRecord представляет локальные переопределения одного типа сущностей.
// Хранится целиком одной записью под ключом EntityType.StorageKey().
type OverrideRecord struct {
	// UpdatedByID частичные патчи по id сущности (локальному или серверному)
	UpdatedByID map[string]Entity `json:"updatedById" yaml:"updatedById"`
	// Created сущности, существующие только на клиенте (id из локального пространства)
	Created []Entity `json:"created" yaml:"created"`
	// DeletedIDs надгробия: id из этого списка никогда не показываются
	DeletedIDs []string `json:"deletedIds" yaml:"deletedIds"`
	// Version счетчик записей; используется только при включенной проверке версий
	Version int64 `json:"version,omitempty" yaml:"version,omitempty"`
}

// NewOverrideRecord создает пустую запись переопределений
func NewOverrideRecord() *OverrideRecord {
	return &OverrideRecord{
		Created:     []Entity{},
		UpdatedByID: map[string]Entity{},
		DeletedIDs:  []string{},
	}
}

// rawOverrideRecord форма записи на диске до нормализации:
// id в deletedIds могут оказаться числами
type rawOverrideRecord struct {
	UpdatedByID map[string]Entity `json:"updatedById"`
	Created     []Entity          `json:"created"`
	DeletedIDs  []any             `json:"deletedIds"`
	Version     int64             `json:"version"`
}

// DecodeOverrideRecord разбирает сериализованную запись и нормализует ее.
// Пустые данные дают пустую запись; ошибка возвращается только для невалидного JSON,
// вызывающий код (overrides.Store) трактует ее как пустую запись.
func DecodeOverrideRecord(data []byte) (*OverrideRecord, error) {
	if len(data) == 0 {
		return NewOverrideRecord(), nil
	}

	var raw rawOverrideRecord
	if err := decodeJSON(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode override record: %w", err)
	}

	rec := &OverrideRecord{
		Created:     raw.Created,
		UpdatedByID: raw.UpdatedByID,
		DeletedIDs:  make([]string, 0, len(raw.DeletedIDs)),
		Version:     raw.Version,
	}
	for _, id := range raw.DeletedIDs {
		rec.DeletedIDs = append(rec.DeletedIDs, IDString(id))
	}
	rec.Normalize()

	return rec, nil
}

// Encode сериализует запись в JSON
func (r *OverrideRecord) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode override record: %w", err)
	}
	return data, nil
}

// Normalize приводит запись к валидной форме:
// nil коллекции становятся пустыми, записи без id и пустые патчи отбрасываются,
// повторы в created и deletedIds удаляются (побеждает первое вхождение).
func (r *OverrideRecord) Normalize() {
	if r.UpdatedByID == nil {
		r.UpdatedByID = map[string]Entity{}
	}

	created := make([]Entity, 0, len(r.Created))
	seen := make(map[string]struct{}, len(r.Created))
	for _, e := range r.Created {
		id := e.ID()
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		created = append(created, e)
	}
	r.Created = created

	for id, patch := range r.UpdatedByID {
		if id == "" || patch == nil {
			delete(r.UpdatedByID, id)
		}
	}

	deleted := make([]string, 0, len(r.DeletedIDs))
	seenDeleted := make(map[string]struct{}, len(r.DeletedIDs))
	for _, id := range r.DeletedIDs {
		if id == "" {
			continue
		}
		if _, dup := seenDeleted[id]; dup {
			continue
		}
		seenDeleted[id] = struct{}{}
		deleted = append(deleted, id)
	}
	r.DeletedIDs = deleted
}

// Clone возвращает копию записи; сущности и патчи копируются поверхностно
func (r *OverrideRecord) Clone() *OverrideRecord {
	out := &OverrideRecord{
		Created:     make([]Entity, 0, len(r.Created)),
		UpdatedByID: make(map[string]Entity, len(r.UpdatedByID)),
		DeletedIDs:  make([]string, len(r.DeletedIDs)),
		Version:     r.Version,
	}
	for _, e := range r.Created {
		out.Created = append(out.Created, e.Clone())
	}
	for id, patch := range r.UpdatedByID {
		out.UpdatedByID[id] = patch.Clone()
	}
	copy(out.DeletedIDs, r.DeletedIDs)
	return out
}

// IsEmpty сообщает, что запись не содержит ни одного переопределения
func (r *OverrideRecord) IsEmpty() bool {
	return len(r.Created) == 0 && len(r.UpdatedByID) == 0 && len(r.DeletedIDs) == 0
}

// DeletedSet возвращает множество надгробий для быстрых проверок
func (r *OverrideRecord) DeletedSet() map[string]struct{} {
	set := make(map[string]struct{}, len(r.DeletedIDs))
	for _, id := range r.DeletedIDs {
		set[id] = struct{}{}
	}
	return set
}

// IsDeleted проверяет наличие надгробия для id
func (r *OverrideRecord) IsDeleted(id string) bool {
	for _, d := range r.DeletedIDs {
		if d == id {
			return true
		}
	}
	return false
}

// FindCreated возвращает локальную сущность по id
func (r *OverrideRecord) FindCreated(id string) (Entity, bool) {
	for _, e := range r.Created {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

// UpsertCreated добавляет локальную сущность или заменяет уже сохраненную с тем же id
// (повторная неудачная попытка создания той же строки не плодит дубликаты)
func (r *OverrideRecord) UpsertCreated(e Entity) {
	id := e.ID()
	for i, existing := range r.Created {
		if existing.ID() == id {
			r.Created[i] = e
			return
		}
	}
	r.Created = append(r.Created, e)
}

// RemoveCreated удаляет локальную сущность; возвращает true если она была
func (r *OverrideRecord) RemoveCreated(id string) bool {
	for i, e := range r.Created {
		if e.ID() == id {
			r.Created = append(r.Created[:i], r.Created[i+1:]...)
			return true
		}
	}
	return false
}

// MergePatch накапливает патч для id: последнее значение побеждает по каждому ключу,
// а не по патчу целиком
func (r *OverrideRecord) MergePatch(id string, patch Entity) {
	if r.UpdatedByID == nil {
		r.UpdatedByID = map[string]Entity{}
	}
	existing := r.UpdatedByID[id]
	merged := make(Entity, len(existing)+len(patch))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range patch {
		if k == IDField {
			continue
		}
		merged[k] = v
	}
	if len(merged) == 0 {
		return
	}
	r.UpdatedByID[id] = merged
}

// ClearPatch удаляет патч для id; возвращает true если он был
func (r *OverrideRecord) ClearPatch(id string) bool {
	if _, ok := r.UpdatedByID[id]; !ok {
		return false
	}
	delete(r.UpdatedByID, id)
	return true
}

// Tombstone помечает id удаленным и вычищает его из created и updatedById
func (r *OverrideRecord) Tombstone(id string) {
	r.RemoveCreated(id)
	r.ClearPatch(id)
	if !r.IsDeleted(id) {
		r.DeletedIDs = append(r.DeletedIDs, id)
	}
}

// RemoveTombstone снимает надгробие: при миграции локального id и когда сервер
// выдал новой сущности ранее удаленный id
func (r *OverrideRecord) RemoveTombstone(id string) bool {
	for i, d := range r.DeletedIDs {
		if d == id {
			r.DeletedIDs = append(r.DeletedIDs[:i], r.DeletedIDs[i+1:]...)
			return true
		}
	}
	return false
}
