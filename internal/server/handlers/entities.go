package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/internal/server/storage"
	"github.com/iudanet/khural/internal/validation"
	"github.com/iudanet/khural/pkg/api"
)

// MaxBodySize предельный размер тела запроса
const MaxBodySize = 1 << 20

// entityRoute переменные маршрута /api/v1/{entity}/{id}
type entityRoute struct {
	Entity string `validate:"required,entitytype"`
	ID     string `validate:"omitempty,entityid"`
}

// EntityHandler обрабатывает CRUD запросы к сущностям панели управления
type EntityHandler struct {
	logger     *slog.Logger
	storage    storage.EntityStorage
	validate   *validator.Validate
	dropFields []string
}

// NewEntityHandler создает handler сущностей.
// Поля из dropFields молча отбрасываются при создании и обновлении,
// как это делает боевой сервер с неподдерживаемыми полями.
func NewEntityHandler(logger *slog.Logger, storage storage.EntityStorage, dropFields []string) *EntityHandler {
	return &EntityHandler{
		logger:     logger,
		storage:    storage,
		validate:   validation.New(),
		dropFields: dropFields,
	}
}

// List обрабатывает GET /api/v1/{entity}
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	entityType, _, ok := h.route(w, r)
	if !ok {
		return
	}

	entities, err := h.storage.ListEntities(r.Context(), entityType)
	if err != nil {
		h.logger.Error("Failed to list entities", "entity_type", entityType, "error", err)
		h.sendError(w, "failed to list entities", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, entities, http.StatusOK)
}

// Create обрабатывает POST /api/v1/{entity}
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	entityType, _, ok := h.route(w, r)
	if !ok {
		return
	}

	entity, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	created, err := h.storage.CreateEntity(r.Context(), entityType, entity)
	if err != nil {
		h.storageError(w, err, "create", entityType, "")
		return
	}

	h.logger.Info("Entity created", "entity_type", entityType, "id", created.ID())
	h.sendJSON(w, created, http.StatusCreated)
}

// Update обрабатывает PATCH /api/v1/{entity}/{id}
func (h *EntityHandler) Update(w http.ResponseWriter, r *http.Request) {
	entityType, id, ok := h.route(w, r)
	if !ok {
		return
	}

	patch, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	updated, err := h.storage.UpdateEntity(r.Context(), entityType, id, patch)
	if err != nil {
		h.storageError(w, err, "update", entityType, id)
		return
	}

	h.logger.Info("Entity updated", "entity_type", entityType, "id", id)
	h.sendJSON(w, updated, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/{entity}/{id}
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entityType, id, ok := h.route(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteEntity(r.Context(), entityType, id); err != nil {
		h.storageError(w, err, "delete", entityType, id)
		return
	}

	h.logger.Info("Entity deleted", "entity_type", entityType, "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// route проверяет переменные маршрута. Неизвестный тип сущности и
// id, который сервер не мог выдать, дают 404.
func (h *EntityHandler) route(w http.ResponseWriter, r *http.Request) (models.EntityType, string, bool) {
	vars := mux.Vars(r)
	rt := entityRoute{Entity: vars["entity"], ID: vars["id"]}

	if err := h.validate.Struct(rt); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "ID" {
			h.sendError(w, "entity not found", http.StatusNotFound)
			return "", "", false
		}
		h.sendError(w, "unknown entity type", http.StatusNotFound)
		return "", "", false
	}

	entityType, err := models.ParseEntityType(rt.Entity)
	if err != nil {
		h.sendError(w, "unknown entity type", http.StatusNotFound)
		return "", "", false
	}
	return entityType, rt.ID, true
}

// decodeBody читает JSON объект из тела запроса и отбрасывает неподдерживаемые поля
func (h *EntityHandler) decodeBody(w http.ResponseWriter, r *http.Request) (models.Entity, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.sendError(w, "request body too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		h.sendError(w, "failed to read request body", http.StatusBadRequest)
		return nil, false
	}

	entity, err := models.DecodeEntity(body)
	if err != nil {
		h.logger.Warn("Invalid entity payload", "error", err)
		h.sendError(w, "request body must be a JSON object", http.StatusBadRequest)
		return nil, false
	}

	for _, field := range h.dropFields {
		delete(entity, field)
	}
	return entity, true
}

func (h *EntityHandler) storageError(w http.ResponseWriter, err error, op string, entityType models.EntityType, id string) {
	switch {
	case errors.Is(err, storage.ErrEntityNotFound):
		h.sendError(w, "entity not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrInvalidEntity):
		h.sendError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("Entity storage error",
			"op", op,
			"entity_type", entityType,
			"id", id,
			"error", err)
		h.sendError(w, "failed to "+op+" entity", http.StatusInternalServerError)
	}
}

// sendJSON отправляет JSON ответ
func (h *EntityHandler) sendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func (h *EntityHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	h.sendJSON(w, resp, statusCode)
}
