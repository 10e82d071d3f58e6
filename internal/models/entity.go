package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// IDField имя поля идентификатора сущности
const IDField = "id"

// Entity представляет произвольную запись админки (депутат, комитет, новость и т.д.).
// Слой переопределений не знает схемы сущности: важен только стабильный "id",
// который может быть строкой или числом и всегда сравнивается как строка.
type Entity map[string]any

// ID возвращает идентификатор сущности в строковом виде
func (e Entity) ID() string {
	if e == nil {
		return ""
	}
	return IDString(e[IDField])
}

// Clone создает поверхностную копию сущности.
// Вложенные значения (массивы, объекты) не копируются: патчи заменяют поля целиком.
func (e Entity) Clone() Entity {
	if e == nil {
		return nil
	}
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Apply возвращает новую сущность {...e, ...patch}.
// Слияние только на верхнем уровне: поле из патча заменяет поле сущности целиком.
// Поле "id" из патча игнорируется, патч не может переименовать сущность.
func (e Entity) Apply(patch Entity) Entity {
	out := make(Entity, len(e)+len(patch))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range patch {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

// IDString приводит значение идентификатора к строке.
// Числа без дробной части форматируются без экспоненты ("42", а не "4.2e+01").
func IDString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return formatFloatID(id)
	case float32:
		return formatFloatID(float64(id))
	case int:
		return strconv.Itoa(id)
	case int32:
		return strconv.FormatInt(int64(id), 10)
	case int64:
		return strconv.FormatInt(id, 10)
	case uint:
		return strconv.FormatUint(uint64(id), 10)
	case uint32:
		return strconv.FormatUint(uint64(id), 10)
	case uint64:
		return strconv.FormatUint(id, 10)
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

func formatFloatID(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// DecodeEntity декодирует JSON объект в Entity, сохраняя числа как json.Number
func DecodeEntity(data []byte) (Entity, error) {
	var e Entity
	if err := decodeJSON(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode entity: %w", err)
	}
	if e == nil {
		return nil, fmt.Errorf("entity must be a JSON object")
	}
	return e, nil
}

// DecodeEntities декодирует JSON массив объектов в []Entity
func DecodeEntities(data []byte) ([]Entity, error) {
	var list []Entity
	if err := decodeJSON(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode entity list: %w", err)
	}
	if list == nil {
		list = []Entity{}
	}
	return list, nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
