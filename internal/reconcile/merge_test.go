package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/khural/internal/models"
)

func record(created []models.Entity, updated map[string]models.Entity, deleted []string) *models.OverrideRecord {
	rec := models.NewOverrideRecord()
	if created != nil {
		rec.Created = created
	}
	if updated != nil {
		rec.UpdatedByID = updated
	}
	if deleted != nil {
		rec.DeletedIDs = deleted
	}
	return rec
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		base []models.Entity
		rec  *models.OverrideRecord
		want []models.Entity
	}{
		{
			name: "patch applied in place",
			base: []models.Entity{{"id": "1", "name": "A"}},
			rec:  record(nil, map[string]models.Entity{"1": {"name": "B"}}, nil),
			want: []models.Entity{{"id": "1", "name": "B"}},
		},
		{
			name: "tombstone wins over base and created",
			base: []models.Entity{{"id": "1", "name": "A"}},
			rec:  record([]models.Entity{{"id": "1", "name": "dup"}}, nil, []string{"1"}),
			want: []models.Entity{},
		},
		{
			name: "base wins over created with same id",
			base: []models.Entity{{"id": "1", "name": "A"}},
			rec:  record([]models.Entity{{"id": "1", "name": "stale"}}, nil, nil),
			want: []models.Entity{{"id": "1", "name": "A"}},
		},
		{
			name: "patch for unknown id is inert",
			base: []models.Entity{{"id": "1", "name": "A"}},
			rec:  record(nil, map[string]models.Entity{"99": {"name": "ghost"}}, nil),
			want: []models.Entity{{"id": "1", "name": "A"}},
		},
		{
			name: "created appended after base in order",
			base: []models.Entity{{"id": "2"}, {"id": "1"}},
			rec: record([]models.Entity{
				{"id": "local-b"},
				{"id": "local-a"},
			}, nil, nil),
			want: []models.Entity{{"id": "2"}, {"id": "1"}, {"id": "local-b"}, {"id": "local-a"}},
		},
		{
			name: "patch applied to local entity",
			rec: record(
				[]models.Entity{{"id": "local-1", "name": "X"}},
				map[string]models.Entity{"local-1": {"name": "Y"}},
				nil),
			want: []models.Entity{{"id": "local-1", "name": "Y"}},
		},
		{
			name: "whole field replace for arrays",
			base: []models.Entity{{"id": "5", "members": []any{"a", "b", "c"}, "title": "T"}},
			rec:  record(nil, map[string]models.Entity{"5": {"members": []any{"z"}}}, nil),
			want: []models.Entity{{"id": "5", "members": []any{"z"}, "title": "T"}},
		},
		{
			name: "numeric ids compare as strings",
			base: []models.Entity{{"id": 1, "name": "A"}, {"id": 2, "name": "B"}},
			rec:  record(nil, map[string]models.Entity{"1": {"name": "A2"}}, []string{"2"}),
			want: []models.Entity{{"id": 1, "name": "A2"}},
		},
		{
			name: "nil record",
			base: []models.Entity{{"id": "1"}},
			want: []models.Entity{{"id": "1"}},
		},
		{
			name: "empty inputs",
			rec:  models.NewOverrideRecord(),
			want: []models.Entity{},
		},
		{
			name: "entities without id are shown as is",
			base: []models.Entity{{"name": "a"}, {"name": "b"}},
			rec:  models.NewOverrideRecord(),
			want: []models.Entity{{"name": "a"}, {"name": "b"}},
		},
		{
			name: "duplicate base ids collapse to first",
			base: []models.Entity{{"id": "1", "v": 1}, {"id": "1", "v": 2}},
			rec:  models.NewOverrideRecord(),
			want: []models.Entity{{"id": "1", "v": 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.base, tt.rec)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	base := []models.Entity{
		{"id": "1", "name": "A"},
		{"id": "2", "name": "B"},
		{"id": "3", "name": "C"},
	}
	rec := record(
		[]models.Entity{{"id": "local-1", "name": "new"}, {"id": "2", "name": "stale"}},
		map[string]models.Entity{"1": {"name": "A2"}, "local-1": {"name": "new2"}},
		[]string{"3"},
	)

	first := Merge(base, rec)
	second := Merge(first, rec)
	again := Merge(base, rec)

	assert.Equal(t, first, second)
	assert.Equal(t, first, again)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := []models.Entity{{"id": "1", "name": "A"}}
	rec := record(
		[]models.Entity{{"id": "local-1", "name": "X"}},
		map[string]models.Entity{"1": {"name": "B"}, "local-1": {"name": "Y"}},
		[]string{"9"},
	)
	recBefore := rec.Clone()

	got := Merge(base, rec)
	require.Len(t, got, 2)

	// Результат не разделяет карты с входными данными
	got[0]["name"] = "changed"
	got[1]["name"] = "changed"

	assert.Equal(t, []models.Entity{{"id": "1", "name": "A"}}, base)
	assert.Equal(t, recBefore, rec)
}

func TestMergeWithStatus_Flags(t *testing.T) {
	base := []models.Entity{{"id": "1", "name": "A"}, {"id": "2", "name": "B"}}
	rec := record(
		[]models.Entity{{"id": "local-1700000000", "name": "X"}, {"id": "tmp-7", "name": "T"}},
		map[string]models.Entity{"2": {"name": "B2"}},
		nil,
	)

	rows := MergeWithStatus(base, rec)
	require.Len(t, rows, 4)

	assert.Equal(t, Row{Entity: models.Entity{"id": "1", "name": "A"}}, rows[0])
	assert.Equal(t, Row{Entity: models.Entity{"id": "2", "name": "B2"}, Patched: true}, rows[1])
	assert.Equal(t, Row{Entity: models.Entity{"id": "local-1700000000", "name": "X"}, Local: true}, rows[2])
	assert.True(t, rows[3].Local)
	assert.False(t, rows[3].Patched)
}
