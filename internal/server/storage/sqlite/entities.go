package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/internal/server/storage"
)

var _ storage.EntityStorage = (*Storage)(nil)

// ListEntities returns all entities of the type ordered by id
// Returns empty slice if no entities found
func (s *Storage) ListEntities(ctx context.Context, entityType models.EntityType) (result []models.Entity, err error) {
	query := `
		SELECT id, data
		FROM entities
		WHERE entity_type = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, string(entityType))
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	result = make([]models.Entity, 0)
	for rows.Next() {
		var id int64
		var data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e, err := decodeData(id, data)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// GetEntity retrieves a single entity by id
// Returns ErrEntityNotFound if entity doesn't exist
func (s *Storage) GetEntity(ctx context.Context, entityType models.EntityType, id string) (models.Entity, error) {
	return getEntity(ctx, s.db, entityType, id)
}

// CreateEntity stores a new entity under the next id of its type.
// Ids are never reused, even after the entity with the highest id is deleted.
func (s *Storage) CreateEntity(ctx context.Context, entityType models.EntityType, entity models.Entity) (models.Entity, error) {
	data, err := encodeData(entity)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Счетчик типа только растет: id удаленной сущности повторно не выдается
	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO entity_sequences (entity_type, last_id)
		VALUES (?, 1)
		ON CONFLICT (entity_type) DO UPDATE SET last_id = last_id + 1
		RETURNING last_id
	`, string(entityType)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate entity id: %w", err)
	}

	now := s.now().Unix()
	query := `
		INSERT INTO entities (entity_type, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	if _, err := tx.ExecContext(ctx, query, string(entityType), id, data, now, now); err != nil {
		return nil, fmt.Errorf("failed to insert entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return decodeData(id, data)
}

// UpdateEntity applies a shallow patch to the stored entity
// Returns ErrEntityNotFound if entity doesn't exist
func (s *Storage) UpdateEntity(ctx context.Context, entityType models.EntityType, id string, patch models.Entity) (models.Entity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := getEntity(ctx, tx, entityType, id)
	if err != nil {
		return nil, err
	}

	data, err := encodeData(current.Apply(patch))
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE entities
		SET data = ?, updated_at = ?
		WHERE entity_type = ? AND id = ?
	`
	numID, _ := parseID(id)
	if _, err := tx.ExecContext(ctx, query, data, s.now().Unix(), string(entityType), numID); err != nil {
		return nil, fmt.Errorf("failed to update entity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return decodeData(numID, data)
}

// DeleteEntity removes the entity
// Returns ErrEntityNotFound if entity doesn't exist
func (s *Storage) DeleteEntity(ctx context.Context, entityType models.EntityType, id string) error {
	numID, ok := parseID(id)
	if !ok {
		return storage.ErrEntityNotFound
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM entities WHERE entity_type = ? AND id = ?`,
		string(entityType), numID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrEntityNotFound
	}

	return nil
}

// queryer общий интерфейс *sql.DB и *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEntity(ctx context.Context, q queryer, entityType models.EntityType, id string) (models.Entity, error) {
	numID, ok := parseID(id)
	if !ok {
		// Нечисловой id (например, локальный id клиента) сервер не выдавал
		return nil, storage.ErrEntityNotFound
	}

	var data string
	err := q.QueryRowContext(ctx,
		`SELECT data FROM entities WHERE entity_type = ? AND id = ?`,
		string(entityType), numID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}

	return decodeData(numID, data)
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// encodeData сериализует сущность без поля id: id хранится в отдельной колонке
func encodeData(e models.Entity) (string, error) {
	fields := make(models.Entity, len(e))
	for k, v := range e {
		if k == models.IDField {
			continue
		}
		fields[k] = v
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrInvalidEntity, err)
	}
	return string(data), nil
}

// decodeData восстанавливает сущность; id выдается числом, как в боевом API
func decodeData(id int64, data string) (models.Entity, error) {
	e, err := models.DecodeEntity([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode entity %d: %w", id, err)
	}
	e[models.IDField] = json.Number(strconv.FormatInt(id, 10))
	return e, nil
}
