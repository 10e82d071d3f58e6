// Package filestore хранит значения в отдельных JSON файлах каталога.
//
// В отличие от bbolt каталог можно открыть из нескольких процессов
// одновременно, а fsnotify превращает запись другого процесса в событие
// (аналог storage-события между вкладками браузера).
package filestore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/iudanet/khural/internal/client/storage"
)

const (
	fileExt    = ".json"
	tempPrefix = ".tmp-"
)

// DebounceWindow окно, в котором события одного ключа сливаются в одно:
// атомарная запись дает несколько событий fsnotify (Create, Rename, Write)
const DebounceWindow = 50 * time.Millisecond

// Storage файловое хранилище ключ/значение
type Storage struct {
	logger *slog.Logger
	// selfWrites контрольные суммы последних собственных записей по ключу:
	// наблюдатель не сообщает о файлах, которые записал этот же экземпляр
	selfWrites map[string]selfWrite
	dir        string
	debounce   time.Duration
	mu         sync.Mutex
}

type selfWrite struct {
	sum     [sha256.Size]byte
	deleted bool
}

var (
	_ storage.KVStorage = (*Storage)(nil)
	_ storage.Watcher   = (*Storage)(nil)
)

// New открывает (и при необходимости создает) каталог хранилища
func New(dir string, logger *slog.Logger) (*Storage, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &Storage{
		dir:        dir,
		logger:     logger,
		selfWrites: make(map[string]selfWrite),
		debounce:   DebounceWindow,
	}, nil
}

// Dir возвращает каталог хранилища
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", storage.ErrInvalidKey, key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

// Get returns the value stored under key
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, storage.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Put replaces the value stored under key.
// Запись атомарная: временный файл в том же каталоге + rename.
func (s *Storage) Put(ctx context.Context, key string, value []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, tempPrefix+key+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Запоминаем до rename: событие fsnotify может прийти раньше возврата из Rename
	s.selfWrites[key] = selfWrite{sum: sha256.Sum256(value)}

	if err := os.Rename(tmpName, path); err != nil {
		delete(s.selfWrites, key)
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", key, err)
	}

	return nil
}

// Delete removes key
func (s *Storage) Delete(ctx context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.selfWrites[key] = selfWrite{deleted: true}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		delete(s.selfWrites, key)
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Keys returns all stored keys in lexical order
func (s *Storage) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage dir: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if key, ok := keyFromName(entry.Name()); ok && !entry.IsDir() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func keyFromName(name string) (string, bool) {
	if strings.HasPrefix(name, ".") {
		return "", false
	}
	key, ok := strings.CutSuffix(name, fileExt)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Watch сообщает о файлах, измененных другими процессами, пока ctx не отменен.
// События одного ключа внутри окна debounce сливаются; собственные записи
// отбрасываются по содержимому файла на момент срабатывания окна.
func (s *Storage) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			key, ok := keyFromName(filepath.Base(event.Name))
			if !ok {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if len(pending) == 0 {
				timer.Reset(s.debounce)
			}
			pending[key] = struct{}{}
		case <-timer.C:
			keys := make([]string, 0, len(pending))
			for key := range pending {
				keys = append(keys, key)
			}
			clear(pending)
			sort.Strings(keys)
			for _, key := range keys {
				if s.isSelfWrite(key) {
					continue
				}
				onChange(key)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("File watcher error", "dir", s.dir, "error", err)
		}
	}
}

// isSelfWrite сравнивает текущее содержимое файла с последней собственной записью
func (s *Storage) isSelfWrite(key string) bool {
	s.mu.Lock()
	last, ok := s.selfWrites[key]
	s.mu.Unlock()
	if !ok {
		return false
	}

	path, err := s.path(key)
	if err != nil {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		// Файла нет: это наше удаление, если последней операцией было Delete
		return errors.Is(err, fs.ErrNotExist) && last.deleted
	}
	return !last.deleted && sha256.Sum256(data) == last.sum
}
