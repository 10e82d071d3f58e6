package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iudanet/khural/pkg/api"
)

// NewRouter собирает маршруты API. Health check доступен без middleware из protect,
// маршруты сущностей проходят через них (например, проверку токена).
func NewRouter(entities *EntityHandler, health *HealthHandler, protect ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	v1 := r.PathPrefix(api.BasePath).Subrouter()
	v1.HandleFunc("/health", health.Health).Methods(http.MethodGet)

	protected := v1.PathPrefix("").Subrouter()
	protected.Use(protect...)

	protected.HandleFunc("/{entity}", entities.List).Methods(http.MethodGet)
	protected.HandleFunc("/{entity}", entities.Create).Methods(http.MethodPost)
	protected.HandleFunc("/{entity}/{id}", entities.Update).Methods(http.MethodPatch)
	protected.HandleFunc("/{entity}/{id}", entities.Delete).Methods(http.MethodDelete)

	return r
}
