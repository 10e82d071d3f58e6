// Package api содержит типы, общие для REST клиента и сервера сущностей.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// BasePath префикс всех маршрутов API
const BasePath = "/api/v1"

// EntityPath путь коллекции сущностей, например "/api/v1/deputies"
func EntityPath(entityType string) string {
	return BasePath + "/" + url.PathEscape(entityType)
}

// EntityItemPath путь одной сущности, например "/api/v1/deputies/42"
func EntityItemPath(entityType, id string) string {
	return EntityPath(entityType) + "/" + url.PathEscape(id)
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// StatusError ответ сервера с кодом вне диапазона 2xx
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// StatusCode возвращает код ответа сервера из цепочки ошибок; 0 если это не StatusError
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound сообщает, что сервер ответил 404
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
