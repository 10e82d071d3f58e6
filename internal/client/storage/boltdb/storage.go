package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketOverrides = []byte("overrides")
)

// DefaultOpenTimeout сколько ждать файловую блокировку, если БД открыта другим процессом
const DefaultOpenTimeout = 2 * time.Second

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	// Открываем BoltDB; bbolt держит эксклюзивную блокировку файла,
	// второй процесс получит ошибку по таймауту вместо вечного ожидания
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: DefaultOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	// Инициализируем buckets
	if err := storage.initBuckets(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		// Создаем bucket для записей переопределений и снимков
		if _, err := tx.CreateBucketIfNotExists(bucketOverrides); err != nil {
			return fmt.Errorf("failed to create overrides bucket: %w", err)
		}

		return nil
	})
}
