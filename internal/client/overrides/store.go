// Package overrides хранит записи локальных переопределений по типам сущностей.
//
// Хранилище работает как кэш "по возможности": ошибки сериализации и записи
// логируются и проглатываются, чтение отсутствующей или испорченной записи
// возвращает пустую запись. Запись, которую не удалось сохранить, остается
// в памяти до конца сессии: текущий экран пользователя от этого не страдает,
// теряется только сохранность между перезапусками.
package overrides

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/iudanet/khural/internal/client/events"
	"github.com/iudanet/khural/internal/client/storage"
	"github.com/iudanet/khural/internal/models"
)

// ErrStaleVersion запись в хранилище изменилась с момента чтения
// (возвращается только при включенной проверке версий)
var ErrStaleVersion = errors.New("override record version is stale")

// ErrWatchUnsupported бэкенд не умеет наблюдать за внешними изменениями
var ErrWatchUnsupported = errors.New("storage backend does not support watching")

// DefaultMaxRetries сколько раз Update повторяет изменение на свежей записи
const DefaultMaxRetries = 3

// Store хранилище записей переопределений
type Store struct {
	kv         storage.KVStorage
	bus        *events.Bus
	logger     *slog.Logger
	maxRetries int
	// unsaved записи, которые не удалось сохранить; Read отдает их вместо бэкенда
	unsaved      map[models.EntityType]*models.OverrideRecord
	versionCheck bool
	// mu сериализует read-modify-write внутри процесса
	mu       sync.Mutex
	unsavedM sync.RWMutex
}

// Option настраивает Store
type Option func(*Store)

// WithVersionCheck включает оптимистичную проверку версий: запись, прочитанная
// до чужого изменения, не затирает его, а применяется заново к свежей записи
func WithVersionCheck(enabled bool) Option {
	return func(s *Store) {
		s.versionCheck = enabled
	}
}

// WithMaxRetries задает число повторов Update при устаревшей версии
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// NewStore создает хранилище переопределений поверх бэкенда ключ/значение
func NewStore(kv storage.KVStorage, bus *events.Bus, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		bus:        bus,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
		unsaved:    make(map[models.EntityType]*models.OverrideRecord),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus возвращает шину, в которую публикуются изменения
func (s *Store) Bus() *events.Bus {
	return s.bus
}

// Read возвращает запись переопределений типа. Никогда не возвращает nil:
// отсутствующая или нечитаемая запись считается пустой.
func (s *Store) Read(ctx context.Context, entityType models.EntityType) *models.OverrideRecord {
	if rec, ok := s.unsavedRecord(entityType); ok {
		return rec
	}

	key := entityType.StorageKey()

	data, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("Failed to read override record, using empty",
				"entity_type", entityType.String(),
				"key", key,
				"error", err)
		}
		return models.NewOverrideRecord()
	}

	rec, err := models.DecodeOverrideRecord(data)
	if err != nil {
		s.logger.Warn("Unparseable override record, using empty",
			"entity_type", entityType.String(),
			"key", key,
			"error", err)
		return models.NewOverrideRecord()
	}

	return rec
}

// Write заменяет запись целиком и публикует событие об изменении.
// Ошибки хранилища логируются и не возвращаются. Единственная возвращаемая
// ошибка: ErrStaleVersion при включенной проверке версий.
func (s *Store) Write(ctx context.Context, entityType models.EntityType, rec *models.OverrideRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(ctx, entityType, rec)
}

// Update выполняет read-modify-write: читает запись, применяет fn и записывает.
// Возвращает записанную запись. При устаревшей версии fn применяется заново
// к свежей записи (не более maxRetries раз).
func (s *Store) Update(ctx context.Context, entityType models.EntityType, fn func(rec *models.OverrideRecord)) *models.OverrideRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec *models.OverrideRecord
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		rec = s.Read(ctx, entityType)
		fn(rec)

		err := s.writeLocked(ctx, entityType, rec)
		if err == nil {
			return rec
		}

		s.logger.Info("Override record changed concurrently, retrying",
			"entity_type", entityType.String(),
			"attempt", attempt+1)
	}

	s.logger.Error("Giving up on override update after concurrent changes",
		"entity_type", entityType.String(),
		"attempts", s.maxRetries+1)
	return rec
}

// Clear сбрасывает запись переопределений типа
func (s *Store) Clear(ctx context.Context, entityType models.EntityType) {
	s.Update(ctx, entityType, func(rec *models.OverrideRecord) {
		version := rec.Version
		*rec = *models.NewOverrideRecord()
		rec.Version = version
	})
}

func (s *Store) writeLocked(ctx context.Context, entityType models.EntityType, rec *models.OverrideRecord) error {
	out := rec.Clone()
	out.Normalize()

	if s.versionCheck {
		current := s.Read(ctx, entityType)
		if current.Version != rec.Version {
			return ErrStaleVersion
		}
		out.Version = rec.Version + 1
	} else {
		out.Version = 0
	}

	rec.Version = out.Version

	if err := s.persist(ctx, entityType, out); err != nil {
		s.logger.Error("Failed to persist override record, change kept in memory only",
			"entity_type", entityType.String(),
			"key", entityType.StorageKey(),
			"error", err)
		s.setUnsaved(entityType, out)
	} else {
		s.setUnsaved(entityType, nil)
	}

	s.bus.Publish(entityType, events.OriginLocal)
	return nil
}

func (s *Store) persist(ctx context.Context, entityType models.EntityType, rec *models.OverrideRecord) error {
	data, err := rec.Encode()
	if err != nil {
		return err
	}
	return s.kv.Put(ctx, entityType.StorageKey(), data)
}

// Unsaved сообщает, что последняя запись типа живет только в памяти
func (s *Store) Unsaved(entityType models.EntityType) bool {
	_, ok := s.unsavedRecord(entityType)
	return ok
}

func (s *Store) unsavedRecord(entityType models.EntityType) (*models.OverrideRecord, bool) {
	s.unsavedM.RLock()
	defer s.unsavedM.RUnlock()

	rec, ok := s.unsaved[entityType]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

func (s *Store) setUnsaved(entityType models.EntityType, rec *models.OverrideRecord) {
	s.unsavedM.Lock()
	defer s.unsavedM.Unlock()

	if rec == nil {
		delete(s.unsaved, entityType)
		return
	}
	s.unsaved[entityType] = rec.Clone()
}

// Watch пересылает изменения, сделанные другими процессами, в шину как
// внешние события, пока ctx не отменен. Возвращает ErrWatchUnsupported,
// если бэкенд не реализует storage.Watcher.
func (s *Store) Watch(ctx context.Context) error {
	watcher, ok := s.kv.(storage.Watcher)
	if !ok {
		return ErrWatchUnsupported
	}

	return watcher.Watch(ctx, func(key string) {
		entityType, ok := models.EntityTypeFromStorageKey(key)
		if !ok {
			return
		}
		s.logger.Debug("External override change", "entity_type", entityType.String())
		s.bus.Publish(entityType, events.OriginExternal)
	})
}
