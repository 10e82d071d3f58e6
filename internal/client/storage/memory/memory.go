// Package memory реализует storage.KVStorage в памяти.
//
// Используется в тестах вместо файлового хранилища. Одно хранилище может
// быть разделено между несколькими "вкладками" через Handle: запись одной
// вкладки приходит остальным как внешнее изменение (см. storage.Watcher).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iudanet/khural/internal/client/storage"
)

// Storage хранилище ключ/значение в памяти
type Storage struct {
	data     map[string][]byte
	watchers map[uint64]watcher
	quota    int
	next     uint64
	mu       sync.RWMutex
}

type watcher struct {
	owner    *Handle
	onChange func(key string)
}

// Option настраивает Storage
type Option func(*Storage)

// WithQuota ограничивает суммарный размер значений в байтах
// (аналог квоты браузерного хранилища); 0 отключает ограничение
func WithQuota(bytes int) Option {
	return func(s *Storage) {
		s.quota = bytes
	}
}

// New создает пустое хранилище
func New(opts ...Option) *Storage {
	s := &Storage{
		data:     make(map[string][]byte),
		watchers: make(map[uint64]watcher),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.KVStorage = (*Storage)(nil)

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	return s.get(key)
}

// Put replaces the value stored under key
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	return s.put(nil, key, value)
}

// Delete removes key
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.delete(nil, key)
}

// Keys returns all stored keys in lexical order
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Handle возвращает представление хранилища для отдельной "вкладки"
func (s *Storage) Handle() *Handle {
	return &Handle{s: s}
}

func (s *Storage) get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (s *Storage) put(owner *Handle, key string, value []byte) error {
	if key == "" {
		return storage.ErrInvalidKey
	}

	s.mu.Lock()
	if s.quota > 0 {
		total := len(value)
		for k, v := range s.data {
			if k != key {
				total += len(v)
			}
		}
		if total > s.quota {
			s.mu.Unlock()
			return storage.ErrQuotaExceeded
		}
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[key] = stored
	notify := s.watchersExcept(owner)
	s.mu.Unlock()

	for _, fn := range notify {
		fn(key)
	}
	return nil
}

func (s *Storage) delete(owner *Handle, key string) error {
	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	var notify []func(string)
	if existed {
		notify = s.watchersExcept(owner)
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn(key)
	}
	return nil
}

// watchersExcept вызывается под блокировкой
func (s *Storage) watchersExcept(owner *Handle) []func(string) {
	out := make([]func(string), 0, len(s.watchers))
	for _, w := range s.watchers {
		if owner != nil && w.owner == owner {
			continue
		}
		out = append(out, w.onChange)
	}
	return out
}

// Handle представление общего хранилища для одной "вкладки"
type Handle struct {
	s *Storage
}

var (
	_ storage.KVStorage = (*Handle)(nil)
	_ storage.Watcher   = (*Handle)(nil)
)

// Get returns the value stored under key
func (h *Handle) Get(ctx context.Context, key string) ([]byte, error) {
	return h.s.get(key)
}

// Put replaces the value stored under key and notifies other handles
func (h *Handle) Put(ctx context.Context, key string, value []byte) error {
	return h.s.put(h, key, value)
}

// Delete removes key and notifies other handles
func (h *Handle) Delete(ctx context.Context, key string) error {
	return h.s.delete(h, key)
}

// Keys returns all stored keys in lexical order
func (h *Handle) Keys(ctx context.Context) ([]string, error) {
	return h.s.Keys(ctx)
}

// Watch сообщает о записях, сделанных другими Handle, пока ctx не отменен
func (h *Handle) Watch(ctx context.Context, onChange func(key string)) error {
	h.s.mu.Lock()
	id := h.s.next
	h.s.next++
	h.s.watchers[id] = watcher{owner: h, onChange: onChange}
	h.s.mu.Unlock()

	<-ctx.Done()

	h.s.mu.Lock()
	delete(h.s.watchers, id)
	h.s.mu.Unlock()

	return nil
}
