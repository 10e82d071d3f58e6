package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/iudanet/khural/internal/client/config"
	"github.com/iudanet/khural/internal/client/coordinator"
	"github.com/iudanet/khural/internal/models"
	"github.com/iudanet/khural/internal/reconcile"
)

type rowView struct {
	Entity  models.Entity `json:"entity" yaml:"entity"`
	ID      string        `json:"id" yaml:"id"`
	Local   bool          `json:"local" yaml:"local"`
	Patched bool          `json:"patched" yaml:"patched"`
}

type resultView struct {
	Entity        models.Entity `json:"entity,omitempty" yaml:"entity,omitempty"`
	Op            string        `json:"op" yaml:"op"`
	State         string        `json:"state" yaml:"state"`
	Kind          string        `json:"kind" yaml:"kind"`
	ID            string        `json:"id" yaml:"id"`
	Message       string        `json:"message" yaml:"message"`
	Error         string        `json:"error,omitempty" yaml:"error,omitempty"`
	PendingDelete bool          `json:"pendingDelete,omitempty" yaml:"pendingDelete,omitempty"`
}

func newResultView(res coordinator.Result) resultView {
	v := resultView{
		Entity:        res.Entity,
		Op:            res.Op.String(),
		State:         res.State.String(),
		Kind:          res.Kind.String(),
		ID:            res.ID,
		Message:       res.Message,
		PendingDelete: res.PendingDelete,
	}
	if res.Err != nil {
		v.Error = res.Err.Error()
	}
	return v
}

// encode выводит значение в формате json или yaml
func (a *App) encode(v any) error {
	switch a.cfg.Format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(a.io)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(a.io)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	}
}

func (a *App) renderRows(rows []reconcile.Row) error {
	if a.cfg.Format != config.FormatTable {
		views := make([]rowView, 0, len(rows))
		for _, row := range rows {
			views = append(views, rowView{
				ID:      row.Entity.ID(),
				Entity:  row.Entity,
				Local:   row.Local,
				Patched: row.Patched,
			})
		}
		return a.encode(views)
	}

	if len(rows) == 0 {
		a.io.Println("No entities.")
		return nil
	}

	tw := tabwriter.NewWriter(a.io, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tFIELDS")
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Entity.ID(), rowStatus(row), summarize(row.Entity))
	}
	return tw.Flush()
}

func rowStatus(row reconcile.Row) string {
	switch {
	case row.Local:
		return "local"
	case row.Patched:
		return "unsynced"
	default:
		return "-"
	}
}

// summarize выводит поля сущности кроме id в виде key=value, по алфавиту
func summarize(e models.Entity) string {
	keys := make([]string, 0, len(e))
	for k := range e {
		if k == models.IDField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+formatValue(e[k]))
	}
	return strings.Join(parts, " ")
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func (a *App) renderResult(res coordinator.Result) error {
	if a.cfg.Format != config.FormatTable {
		return a.encode(newResultView(res))
	}
	a.io.Printf("%s %s: %s\n", res.Op, res.ID, res.Message)
	if res.Err != nil {
		a.io.Printf("  reason: %v\n", res.Err)
	}
	return nil
}

func (a *App) renderResults(results []coordinator.Result) error {
	if a.cfg.Format != config.FormatTable {
		views := make([]resultView, 0, len(results))
		for _, res := range results {
			views = append(views, newResultView(res))
		}
		return a.encode(views)
	}

	synced := 0
	for _, res := range results {
		if res.Synced() {
			synced++
		}
		if err := a.renderResult(res); err != nil {
			return err
		}
	}
	a.io.Printf("Synced %d of %d local change(s).\n", synced, len(results))
	return nil
}

func (a *App) renderRecord(entityType models.EntityType, rec *models.OverrideRecord) error {
	if a.cfg.Format != config.FormatTable {
		return a.encode(rec)
	}

	a.io.Printf("Overrides for %s (key %s)\n", entityType, entityType.StorageKey())
	if a.store.Unsaved(entityType) {
		a.io.Println("Warning: last change could not be saved to disk and lives in memory only.")
	}
	if rec.IsEmpty() {
		a.io.Println("No local overrides.")
		return nil
	}

	a.io.Printf("Created locally: %d\n", len(rec.Created))
	for _, e := range rec.Created {
		a.io.Printf("  %s  %s\n", e.ID(), summarize(e))
	}
	a.io.Printf("Pending patches: %d\n", len(rec.UpdatedByID))
	ids := make([]string, 0, len(rec.UpdatedByID))
	for id := range rec.UpdatedByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a.io.Printf("  %s  %s\n", id, summarize(rec.UpdatedByID[id]))
	}
	a.io.Printf("Deleted: %d\n", len(rec.DeletedIDs))
	if len(rec.DeletedIDs) > 0 {
		a.io.Printf("  %s\n", strings.Join(rec.DeletedIDs, ", "))
	}
	return nil
}
