package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/khural/internal/server/config"
)

// RateLimiter ограничивает частоту запросов одного клиента.
// Каждому ключу (обычно IP) соответствует token bucket емкостью
// RequestsPerMinute, который непрерывно пополняется со скоростью
// RequestsPerMinute токенов в минуту.
type RateLimiter struct {
	buckets   map[string]*bucket
	logger    *slog.Logger
	now       func() time.Time
	stopC     chan struct{}
	perSecond float64
	burst     float64
	mu        sync.RWMutex
	stopOnce  sync.Once
}

type bucket struct {
	lastSeen time.Time
	tokens   float64
	mu       sync.Mutex
}

// idleTTL время, за которое пустой bucket пополняется до полного:
// после этого bucket неотличим от нового и его можно удалить
const idleTTL = time.Minute

// NewRateLimiter создает limiter из настроек сервера
func NewRateLimiter(cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	rpm := max(cfg.RequestsPerMinute, 1)
	rl := &RateLimiter{
		buckets:   make(map[string]*bucket),
		logger:    logger,
		now:       time.Now,
		stopC:     make(chan struct{}),
		perSecond: float64(rpm) / 60,
		burst:     float64(rpm),
	}

	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивные buckets
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(idleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.removeIdle()
		case <-rl.stopC:
			return
		}
	}
}

func (rl *RateLimiter) removeIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		if now.Sub(b.lastSeen) >= idleTTL {
			delete(rl.buckets, key)
		}
		b.mu.Unlock()
	}
}

// Stop останавливает очистку; повторный вызов безопасен
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopC)
	})
}

// Allow списывает токен ключа. Если токенов нет, возвращает false и время,
// через которое появится следующий токен.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.RLock()
	b, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Повторная проверка: bucket мог создать параллельный запрос
		if b, exists = rl.buckets[key]; !exists {
			b = &bucket{tokens: rl.burst, lastSeen: rl.now()}
			rl.buckets[key] = b
		}
		rl.mu.Unlock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(b.lastSeen); elapsed > 0 {
		b.tokens = min(rl.burst, b.tokens+elapsed.Seconds()*rl.perSecond)
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration((1 - b.tokens) / rl.perSecond * float64(time.Second))
	return false, wait
}

// retryAfterSeconds значение заголовка Retry-After: целые секунды, не меньше одной
func retryAfterSeconds(wait time.Duration) int {
	return max(int(math.Ceil(wait.Seconds())), 1)
}

// RateLimitMiddleware создает middleware для ограничения частоты запросов по IP.
// Остановка limiter (Stop) остается за вызывающим.
func RateLimitMiddleware(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Используем IP адрес как ключ
			key := getClientIP(r)

			allowed, wait := limiter.Allow(key)
			if !allowed {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after", wait,
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
				writeError(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	// Проверяем X-Forwarded-For (для прокси/load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	// Проверяем X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Используем RemoteAddr без порта
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
