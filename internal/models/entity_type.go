package models

import (
	"fmt"
	"strings"
)

// EntityType тип сущности админки; у каждого типа своя запись переопределений
type EntityType string

// Типы сущностей панели управления
const (
	EntityDeputies     EntityType = "deputies"
	EntityCommittees   EntityType = "committees"
	EntityConvocations EntityType = "convocations"
	EntityNews         EntityType = "news"
	EntityPages        EntityType = "pages"
	EntitySlider       EntityType = "slider"
	EntityPortals      EntityType = "portals"
)

// EntityTypes возвращает все известные типы сущностей в порядке меню админки
func EntityTypes() []EntityType {
	return []EntityType{
		EntityDeputies,
		EntityCommittees,
		EntityConvocations,
		EntityNews,
		EntityPages,
		EntitySlider,
		EntityPortals,
	}
}

// ParseEntityType разбирает имя типа сущности (регистр и пробелы игнорируются)
func ParseEntityType(s string) (EntityType, error) {
	name := EntityType(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range EntityTypes() {
		if t == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type: %q", s)
}

// StorageKey возвращает ключ хранилища записи переопределений,
// например "khural_deputies_overrides_v1"
func (t EntityType) StorageKey() string {
	return "khural_" + string(t) + "_overrides_v1"
}

// EventName возвращает имя события об изменении переопределений,
// например "khural:deputies-updated"
func (t EntityType) EventName() string {
	return "khural:" + string(t) + "-updated"
}

// EntityTypeFromStorageKey обратное преобразование для StorageKey.
// Используется наблюдателем файлового хранилища.
func EntityTypeFromStorageKey(key string) (EntityType, bool) {
	name, ok := strings.CutPrefix(key, "khural_")
	if !ok {
		return "", false
	}
	name, ok = strings.CutSuffix(name, "_overrides_v1")
	if !ok || name == "" {
		return "", false
	}
	return EntityType(name), true
}

func (t EntityType) String() string {
	return string(t)
}
