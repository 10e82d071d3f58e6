package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/internal/validation"
)

// parseFields разбирает аргументы вида key=value в сущность.
// Значение, являющееся валидным JSON (число, массив, объект, true/false/null,
// строка в кавычках), сохраняется как JSON; иначе как строка.
func parseFields(args []string) (models.Entity, error) {
	e := make(models.Entity, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: want key=value", arg)
		}
		if err := validation.ValidateFieldName(key); err != nil {
			return nil, err
		}
		e[key] = parseValue(value)
	}
	return e, nil
}

func parseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return raw
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	return v
}
