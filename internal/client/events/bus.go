// Package events реализует шину уведомлений об изменении переопределений.
//
// Шина заменяет пару браузерных событий: собственное событие
// "khural:<entity>-updated" для подписчиков того же процесса и storage-событие
// для изменений, сделанных другим процессом (см. overrides.Store.Watch).
package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/khural/internal/models"
)

// Origin источник изменения
type Origin int

const (
	// OriginLocal запись сделана этим процессом
	OriginLocal Origin = iota
	// OriginExternal запись сделана другим процессом (аналог storage-события)
	OriginExternal
)

func (o Origin) String() string {
	if o == OriginExternal {
		return "external"
	}
	return "local"
}

// Event уведомление о том, что запись переопределений типа изменилась
type Event struct {
	At         time.Time
	Name       string
	EntityType models.EntityType
	Origin     Origin
}

// DefaultBuffer размер буфера канала подписчика по умолчанию
const DefaultBuffer = 16

type subscription struct {
	ch         chan Event
	entityType models.EntityType
}

// Bus раздает события подписчикам. Публикация не блокируется:
// если буфер подписчика полон, событие отбрасывается: подписчику достаточно
// одного необработанного события, чтобы перечитать хранилище.
type Bus struct {
	logger *slog.Logger
	subs   map[uint64]*subscription
	next   uint64
	mu     sync.RWMutex
	closed bool
}

// NewBus создает новую шину
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[uint64]*subscription),
	}
}

// Subscribe подписывается на события типа entityType (пустой тип означает все типы).
// Возвращает канал событий и функцию отписки; отписка закрывает канал.
func (b *Bus) Subscribe(entityType models.EntityType, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = &subscription{ch: ch, entityType: entityType}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.ch)
			}
		})
	}

	return ch, unsubscribe
}

// Publish рассылает событие об изменении записи entityType
func (b *Bus) Publish(entityType models.EntityType, origin Origin) {
	event := Event{
		Name:       entityType.EventName(),
		EntityType: entityType,
		Origin:     origin,
		At:         time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if sub.entityType != "" && sub.entityType != entityType {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Буфер полон: в очереди уже есть непрочитанное событие
			b.logger.Debug("Subscriber buffer full, event coalesced",
				"event", event.Name,
				"origin", origin.String())
		}
	}
}

// Subscribers возвращает количество активных подписчиков
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close закрывает все каналы подписчиков; дальнейшие публикации игнорируются
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
