package identity

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Префиксы локального пространства идентификаторов.
// Серверные id никогда не начинаются с этих префиксов.
const (
	LocalPrefix = "local-"
	TempPrefix  = "tmp-"
)

// IsLocalID сообщает, что id выдан клиентом и сервер о нем еще не знает.
// Для таких сущностей UI отключает действия, которым нужен серверный id
// (например, загрузку фото).
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalPrefix) || strings.HasPrefix(id, TempPrefix)
}

// Generator выдает локальные id вида "local-<unix-millis>[-<node>]".
//
// Миллисекунды монотонны в пределах процесса: если часы не сдвинулись
// (или ушли назад), берется last+1, как в часах Лампорта. Поэтому два вызова
// подряд никогда не дают одинаковый id. Метка узла различает процессы.
type Generator struct {
	now  func() time.Time
	node string
	last int64
	mu   sync.Mutex
}

// GeneratorOption настраивает Generator
type GeneratorOption func(*Generator)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// WithNode задает метку узла; пустая строка убирает суффикс
func WithNode(node string) GeneratorOption {
	return func(g *Generator) {
		g.node = node
	}
}

// NewGenerator создает генератор с меткой узла из первых 8 символов UUID
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		now:  time.Now,
		node: strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewLocalID возвращает новый локальный id
func (g *Generator) NewLocalID() string {
	g.mu.Lock()
	ts := g.now().UnixMilli()
	if ts <= g.last {
		ts = g.last + 1
	}
	g.last = ts
	g.mu.Unlock()

	id := LocalPrefix + strconv.FormatInt(ts, 10)
	if g.node != "" {
		id += "-" + g.node
	}
	return id
}

// Node возвращает метку узла генератора
func (g *Generator) Node() string {
	return g.node
}
