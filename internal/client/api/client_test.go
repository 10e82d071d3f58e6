package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/", WithToken("t0ken"), WithTimeout(5*time.Second))

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, "t0ken", client.token)
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)

	assert.Equal(t, DefaultTimeout, NewClient("http://x").httpClient.Timeout)
}

// TestClient_List проверяет загрузку списка с сохранением числовых id
func TestClient_List(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/deputies", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":12345678901234567,"name":"A"},{"id":"2","name":"B"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithToken("secret"))
	list, err := client.List(context.Background(), models.EntityDeputies)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "12345678901234567", list[0].ID())
	assert.Equal(t, "2", list[1].ID())
}

// TestClient_CreateUpdateRemove проверяет запросы записи через EntityClient
func TestClient_CreateUpdateRemove(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/committees":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			body["id"] = 77
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(body)
		case r.Method == http.MethodPatch && r.URL.Path == "/api/v1/committees/77":
			var patch map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 77, "name": patch["name"]})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/v1/committees/77":
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	committees := NewClient(server.URL).For(models.EntityCommittees)
	assert.Equal(t, models.EntityCommittees, committees.EntityType())
	ctx := context.Background()

	created, err := committees.Create(ctx, models.Entity{"name": "Budget"})
	require.NoError(t, err)
	assert.Equal(t, "77", created.ID())
	assert.Equal(t, "Budget", created["name"])

	updated, err := committees.Update(ctx, "77", models.Entity{"name": "Finance"})
	require.NoError(t, err)
	assert.Equal(t, "Finance", updated["name"])

	require.NoError(t, committees.Remove(ctx, "77"))
}

// TestClient_StatusErrors проверяет разбор ошибок сервера
func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		status      int
	}{
		{
			name:        "error response with message",
			status:      http.StatusUnprocessableEntity,
			body:        `{"error":"validation failed","message":"name is required"}`,
			wantMessage: "name is required",
		},
		{
			name:        "error response without message",
			status:      http.StatusNotFound,
			body:        `{"error":"entity not found"}`,
			wantMessage: "entity not found",
		},
		{
			name:        "plain text",
			status:      http.StatusBadGateway,
			body:        "upstream down\n",
			wantMessage: "upstream down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Update(context.Background(), models.EntityNews, "1", models.Entity{"a": 1})
			require.Error(t, err)

			var statusErr *api.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantMessage, statusErr.Message)
		})
	}
}

// TestClient_NetworkError проверяет, что сетевая ошибка не является StatusError
func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	err := NewClient(url).Remove(context.Background(), models.EntityPages, "1")
	require.Error(t, err)
	assert.Equal(t, 0, api.StatusCode(err))
}

// TestClient_Health проверяет health check
func TestClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Version: "dev"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

// TestClient_DecodeError проверяет ответ, который не является объектом
func TestClient_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `"nope"`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Create(context.Background(), models.EntitySlider, models.Entity{})
	assert.Error(t, err)
}
