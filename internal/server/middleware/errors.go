package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/iudanet/khural/pkg/api"
)

// writeError отправляет JSON ответ с ошибкой в формате API
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
