package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/pkg/api"
)

// DefaultTimeout таймаут HTTP запросов по умолчанию
const DefaultTimeout = 30 * time.Second

// Client представляет HTTP клиент REST API сущностей
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// Option настраивает Client
type Option func(*Client)

// WithToken задает bearer токен для всех запросов
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout задает таймаут HTTP запросов
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient создает новый API клиент
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	body, err := c.doRequest(ctx, http.MethodGet, api.BasePath+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("health request failed: %w", err)
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// List загружает серверный список сущностей типа
func (c *Client) List(ctx context.Context, entityType models.EntityType) ([]models.Entity, error) {
	body, err := c.doRequest(ctx, http.MethodGet, api.EntityPath(entityType.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("list %s request failed: %w", entityType, err)
	}
	return models.DecodeEntities(body)
}

// Create создает сущность и возвращает ее серверную версию
func (c *Client) Create(ctx context.Context, entityType models.EntityType, entity models.Entity) (models.Entity, error) {
	body, err := c.doRequest(ctx, http.MethodPost, api.EntityPath(entityType.String()), entity)
	if err != nil {
		return nil, fmt.Errorf("create %s request failed: %w", entityType, err)
	}
	return models.DecodeEntity(body)
}

// Update применяет частичный патч к сущности
func (c *Client) Update(ctx context.Context, entityType models.EntityType, id string, patch models.Entity) (models.Entity, error) {
	body, err := c.doRequest(ctx, http.MethodPatch, api.EntityItemPath(entityType.String(), id), patch)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s request failed: %w", entityType, id, err)
	}
	return models.DecodeEntity(body)
}

// Remove удаляет сущность
func (c *Client) Remove(ctx context.Context, entityType models.EntityType, id string) error {
	if _, err := c.doRequest(ctx, http.MethodDelete, api.EntityItemPath(entityType.String(), id), nil); err != nil {
		return fmt.Errorf("delete %s/%s request failed: %w", entityType, id, err)
	}
	return nil
}

// For возвращает клиент, привязанный к одному типу сущностей
func (c *Client) For(entityType models.EntityType) *EntityClient {
	return &EntityClient{client: c, entityType: entityType}
}

// EntityClient REST клиент одного типа сущностей
type EntityClient struct {
	client     *Client
	entityType models.EntityType
}

// EntityType возвращает тип сущностей клиента
func (e *EntityClient) EntityType() models.EntityType {
	return e.entityType
}

// List загружает серверный список
func (e *EntityClient) List(ctx context.Context) ([]models.Entity, error) {
	return e.client.List(ctx, e.entityType)
}

// Create создает сущность
func (e *EntityClient) Create(ctx context.Context, entity models.Entity) (models.Entity, error) {
	return e.client.Create(ctx, e.entityType, entity)
}

// Update применяет патч к сущности
func (e *EntityClient) Update(ctx context.Context, id string, patch models.Entity) (models.Entity, error) {
	return e.client.Update(ctx, e.entityType, id, patch)
}

// Remove удаляет сущность
func (e *EntityClient) Remove(ctx context.Context, id string) error {
	return e.client.Remove(ctx, e.entityType, id)
}

// doRequest выполняет HTTP запрос и возвращает тело успешного ответа.
// Ответ с кодом вне 2xx возвращается как *api.StatusError.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &api.StatusError{StatusCode: resp.StatusCode}
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Message = errResp.Message
			if statusErr.Message == "" {
				statusErr.Message = errResp.Error
			}
		} else {
			statusErr.Message = strings.TrimSpace(string(respBody))
		}
		return nil, statusErr
	}

	return respBody, nil
}
