package table

import (
	"github.com/shiftwise/console/model"
)

// EmptyMessage is shown when a table has no rows.
const EmptyMessage = "No records found"

// Table builds view payloads for one screen definition.
type Table struct {
	screen model.ScreenDefinition
}

// New creates a table builder for the screen.
func New(screen model.ScreenDefinition) *Table {
	return &Table{screen: screen}
}

// PageSize returns the screen's effective page size.
func (t *Table) PageSize() int {
	if t.screen.Pagination.PageSize > 0 {
		return t.screen.Pagination.PageSize
	}
	return DefaultPageSize
}

// BuildClientPage slices a fully fetched row set locally. Used for screens
// in client pagination mode, where the backend returns everything at once.
func (t *Table) BuildClientPage(all []map[string]any, page int) model.DataPayload {
	pager := NewPager(page, t.PageSize(), len(all))
	lo, hi := pager.SliceBounds(len(all))
	return t.build(all[lo:hi], pager)
}

// BuildServerPage wraps a backend-paginated record page. The backend's
// total count drives the page math; the rows are taken as-is.
func (t *Table) BuildServerPage(rp model.RecordPage, page int) model.DataPayload {
	pager := NewPager(page, t.PageSize(), rp.TotalCount)
	return t.build(rp.Items, pager)
}

func (t *Table) build(records []map[string]any, pager Pager) model.DataPayload {
	rows := make([]model.Row, 0, len(records))
	for i, rec := range records {
		rows = append(rows, t.mapRow(rec, pager, i))
	}

	payload := model.DataPayload{
		Items:      rows,
		TotalCount: pager.TotalCount,
		Page:       pager.Page,
		PageSize:   pager.Limit,
		TotalPages: pager.TotalPages(),
	}
	if len(rows) == 0 {
		payload.EmptyMessage = EmptyMessage
	}
	return payload
}

// mapRow applies the screen's row mapping to one raw record and fills
// synthetic columns. Without a mapping the record passes through intact.
func (t *Table) mapRow(rec map[string]any, pager Pager, index int) model.Row {
	var row model.Row

	if len(t.screen.RowMap) == 0 {
		row = make(model.Row, len(rec)+1)
		for k, v := range rec {
			row[k] = v
		}
	} else {
		row = make(model.Row, len(t.screen.RowMap)+1)
		idField := t.screen.Resource.IDField
		if idField == "" {
			idField = "id"
		}
		if v, ok := rec[idField]; ok {
			row[idField] = v
		}
		for _, m := range t.screen.RowMap {
			source := m.Source
			if source == "" {
				source = m.Key
			}
			v, ok := rec[source]
			if !ok || v == nil {
				if m.Default != nil {
					row[m.Key] = m.Default
				} else {
					row[m.Key] = model.CoerceValue(m.Coerce, nil)
				}
				continue
			}
			row[m.Key] = model.CoerceValue(m.Coerce, v)
		}
	}

	for _, col := range t.screen.Columns {
		if col.Key == model.ColumnSerial {
			row[model.ColumnSerial] = SerialNumber(pager.Page, pager.Limit, index)
		}
	}

	return row
}
