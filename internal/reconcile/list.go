package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"github.com/iudanet/khural/internal/client/events"
	"github.com/iudanet/khural/internal/client/overrides"
	"github.com/iudanet/khural/internal/models"
)

// List отображаемый список одного типа сущностей.
// Пересчитывается при смене серверного списка (SetBase) и при любом изменении
// записи переопределений этого типа, сделанном этим или другим процессом.
type List struct {
	store       *overrides.Store
	logger      *slog.Logger
	changes     chan struct{}
	done        chan struct{}
	unsubscribe func()
	entityType  models.EntityType
	base        []models.Entity
	rows        []Row
	mu          sync.RWMutex
	closeOnce   sync.Once
	closed      bool
}

// NewList создает список и подписывает его на изменения переопределений.
// ctx используется для чтения хранилища при пересчетах; Close обязателен.
func NewList(ctx context.Context, store *overrides.Store, entityType models.EntityType, base []models.Entity, logger *slog.Logger) *List {
	l := &List{
		store:      store,
		logger:     logger,
		entityType: entityType,
		base:       cloneBase(base),
		changes:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	ch, unsubscribe := store.Bus().Subscribe(entityType, events.DefaultBuffer)
	l.unsubscribe = unsubscribe
	l.recompute(ctx)

	go l.run(ctx, ch)

	return l
}

func (l *List) run(ctx context.Context, ch <-chan events.Event) {
	defer close(l.done)

	for ev := range ch {
		l.logger.Debug("Override change received, recomputing list",
			"entity_type", l.entityType.String(),
			"origin", ev.Origin.String())
		l.recompute(ctx)
	}
}

// SetBase заменяет серверный список и пересчитывает отображаемый
func (l *List) SetBase(ctx context.Context, base []models.Entity) {
	l.mu.Lock()
	l.base = cloneBase(base)
	l.mu.Unlock()

	l.recompute(ctx)
}

// Items возвращает текущий отображаемый список
func (l *List) Items() []models.Entity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Entity, 0, len(l.rows))
	for _, row := range l.rows {
		out = append(out, row.Entity.Clone())
	}
	return out
}

// Rows возвращает текущий отображаемый список с признаками Local/Patched
func (l *List) Rows() []Row {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Row, len(l.rows))
	for i, row := range l.rows {
		row.Entity = row.Entity.Clone()
		out[i] = row
	}
	return out
}

// Changes канал, в который приходит сигнал после каждого пересчета.
// Сигналы сливаются: подписчику достаточно перечитать Items.
// Канал закрывается в Close.
func (l *List) Changes() <-chan struct{} {
	return l.changes
}

// Close отписывает список от изменений и закрывает канал Changes
func (l *List) Close() {
	l.closeOnce.Do(func() {
		l.unsubscribe()
		<-l.done

		l.mu.Lock()
		l.closed = true
		close(l.changes)
		l.mu.Unlock()
	})
}

func (l *List) recompute(ctx context.Context) {
	rec := l.store.Read(ctx, l.entityType)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.rows = MergeWithStatus(l.base, rec)

	select {
	case l.changes <- struct{}{}:
	default:
	}
}

func cloneBase(base []models.Entity) []models.Entity {
	out := make([]models.Entity, len(base))
	copy(out, base)
	return out
}
