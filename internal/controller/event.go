package controller

import (
	"context"
	"fmt"

	"github.com/shiftwise/console/model"
)

// Event types accepted by Dispatch.
const (
	EventChangePage    = "change_page"
	EventChangeLimit   = "change_limit"
	EventOpenAdd       = "open_add"
	EventOpenEdit      = "open_edit"
	EventOpenDelete    = "open_delete"
	EventSetField      = "set_field"
	EventSubmit        = "submit"
	EventCancel        = "cancel"
	EventConfirmDelete = "confirm_delete"
	EventRefresh       = "refresh"
)

// Event is one UI interaction sent to a screen session.
type Event struct {
	Type     string `json:"type"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Field    string `json:"field,omitempty"`
	Value    any    `json:"value,omitempty"`

	// IdempotencyKey deduplicates create submissions.
	IdempotencyKey string `json:"-"`
}

// Dispatch routes one event to the controller and returns the resulting
// view state.
func (c *ListController) Dispatch(ctx context.Context, rctx *model.RequestContext, ev Event) (Snapshot, error) {
	var err error
	switch ev.Type {
	case EventChangePage:
		err = c.ChangePage(ctx, rctx, ev.Page)
	case EventChangeLimit:
		err = c.ChangeLimit(ctx, rctx, ev.Limit)
	case EventOpenAdd:
		c.OpenAdd()
	case EventOpenEdit:
		err = c.OpenEdit(ev.RecordID)
	case EventOpenDelete:
		err = c.OpenDelete(ev.RecordID)
	case EventSetField:
		err = c.SetField(ev.Field, ev.Value)
	case EventSubmit:
		err = c.Submit(ctx, rctx, ev.IdempotencyKey)
	case EventCancel:
		c.Cancel()
	case EventConfirmDelete:
		err = c.ConfirmDelete(ctx, rctx)
	case EventRefresh:
		err = c.refresh(ctx, rctx)
	default:
		err = model.NewBadRequestError(fmt.Sprintf("unknown event type %q", ev.Type))
	}
	if err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(), nil
}
