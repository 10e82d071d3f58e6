// Package reconcile сводит серверный список сущностей с локальными переопределениями
// в список, который показывает админка.
package reconcile

import (
	"github.com/iudanet/khural/internal/client/identity"
	"github.com/iudanet/khural/internal/models"
)

// Row строка отображаемого списка с признаками происхождения
type Row struct {
	Entity models.Entity
	// Local сущность пока существует только на клиенте (локальный id)
	Local bool
	// Patched к сущности применен несинхронизированный патч
	Patched bool
}

// Merge возвращает отображаемый список: base с примененными патчами,
// затем локально созданные сущности, которых еще нет в base.
//
// Функция чистая: входные данные не изменяются, сущности результата
// являются новыми поверхностными копиями.
func Merge(base []models.Entity, rec *models.OverrideRecord) []models.Entity {
	rows := MergeWithStatus(base, rec)
	out := make([]models.Entity, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Entity)
	}
	return out
}

// MergeWithStatus то же, что Merge, но с признаками Local/Patched для каждой строки
func MergeWithStatus(base []models.Entity, rec *models.OverrideRecord) []Row {
	if rec == nil {
		rec = models.NewOverrideRecord()
	}

	deleted := rec.DeletedSet()
	seen := make(map[string]struct{}, len(base)+len(rec.Created))
	rows := make([]Row, 0, len(base)+len(rec.Created))

	// 1. Серверный список по порядку: надгробия пропускаем, патчи применяем на месте
	for _, e := range base {
		id := e.ID()
		if _, gone := deleted[id]; gone {
			continue
		}
		if id == "" {
			// Сущность без id нельзя ни патчить, ни сопоставить: показываем как есть
			rows = append(rows, Row{Entity: e.Clone()})
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		rows = append(rows, apply(e, id, rec))
		seen[id] = struct{}{}
	}

	// 2. Локальные сущности, которых нет в base (base побеждает при совпадении id)
	for _, e := range rec.Created {
		id := e.ID()
		if _, gone := deleted[id]; gone {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		rows = append(rows, apply(e, id, rec))
		seen[id] = struct{}{}
	}

	return rows
}

func apply(e models.Entity, id string, rec *models.OverrideRecord) Row {
	row := Row{Local: identity.IsLocalID(id)}
	if patch, ok := rec.UpdatedByID[id]; ok {
		row.Entity = e.Apply(patch)
		row.Patched = true
		return row
	}
	row.Entity = e.Clone()
	return row
}
