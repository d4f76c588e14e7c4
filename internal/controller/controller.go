// Package controller owns the server-side list state of each CRUD screen:
// the current page, the open dialog and its draft, and the fetch/mutate
// cycle against the screen's resource.
package controller

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/form"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/internal/table"
	"github.com/shiftwise/console/model"
)

// Dialog modes of a list controller.
const (
	ModeView   = "view"
	ModeAdd    = "add"
	ModeEdit   = "edit"
	ModeDelete = "delete"
)

// Snapshot is the view state returned after every event.
type Snapshot struct {
	ScreenID    string             `json:"screen_id"`
	Mode        string             `json:"mode"`
	Data        model.DataPayload  `json:"data"`
	Draft       model.Draft        `json:"draft,omitempty"`
	Visible     []string           `json:"visible_fields,omitempty"`
	FieldErrors []model.FieldError `json:"field_errors,omitempty"`
	ActiveID    string             `json:"active_id,omitempty"`
	Notices     []model.Notice     `json:"notices,omitempty"`
}

// ListController drives one subject's view of one screen. All methods are
// called with the manager's per-session serialization; the internal
// generation counter additionally discards list responses that were
// overtaken by a newer fetch.
type ListController struct {
	screen  model.ScreenDefinition
	client  *resource.Client
	engine  *form.Engine
	table   *table.Table
	notices *model.NoticeLog
	idem    IdempotencyStore
	idemTTL time.Duration
	logger  *zap.Logger

	page  int
	limit int

	mode        string
	activeID    string
	draft       model.Draft
	fieldErrors []model.FieldError

	// Client mode caches the full row set; server mode keeps the last page.
	cache   []map[string]any
	current model.RecordPage
	loaded  bool
	gen     uint64

	lastUsed time.Time
}

// New creates a controller for the screen. The idempotency store may be nil
// to disable create deduplication.
func New(screen model.ScreenDefinition, client *resource.Client, idem IdempotencyStore, idemTTL time.Duration, logger *zap.Logger) *ListController {
	return &ListController{
		screen:   screen,
		client:   client,
		engine:   form.NewEngine(screen.Fields, screen.Submit),
		table:    table.New(screen),
		notices:  model.NewNoticeLog(),
		idem:     idem,
		idemTTL:  idemTTL,
		logger:   logger,
		page:     1,
		limit:    effectivePageSize(screen),
		mode:     ModeView,
		lastUsed: time.Now(),
	}
}

func effectivePageSize(screen model.ScreenDefinition) int {
	if screen.Pagination.PageSize > 0 {
		return screen.Pagination.PageSize
	}
	return table.DefaultPageSize
}

func (c *ListController) touch() {
	c.lastUsed = time.Now()
}

// LastUsed returns the time of the most recent event, for idle expiry.
func (c *ListController) LastUsed() time.Time {
	return c.lastUsed
}

// Load performs the initial fetch. Subsequent calls are no-ops unless the
// data was never loaded successfully.
func (c *ListController) Load(ctx context.Context, rctx *model.RequestContext) error {
	c.touch()
	if c.loaded {
		return nil
	}
	return c.refresh(ctx, rctx)
}

// refresh fetches the current page (server mode) or the full row set
// (client mode). A response that arrives after a newer fetch started is
// discarded.
func (c *ListController) refresh(ctx context.Context, rctx *model.RequestContext) error {
	c.gen++
	gen := c.gen

	var (
		rp  model.RecordPage
		err error
	)
	if c.screen.Pagination.Mode == model.PaginationClient {
		rp, err = c.client.List(ctx, rctx, 0, 0)
	} else {
		rp, err = c.client.List(ctx, rctx, c.page, c.limit)
	}

	if gen != c.gen {
		// Overtaken by a newer fetch; its result is already in place.
		return nil
	}
	if err != nil {
		c.notices.NotifyError(userMessage(err))
		return err
	}

	if c.screen.Pagination.Mode == model.PaginationClient {
		c.cache = rp.Items
	} else {
		c.current = rp
		// Deleting the last row of the last page can leave the cursor past
		// the end; clamp and refetch once.
		pager := table.NewPager(c.page, c.limit, rp.TotalCount)
		if c.page > pager.TotalPages() {
			c.page = pager.TotalPages()
			return c.refresh(ctx, rctx)
		}
	}
	c.loaded = true
	return nil
}

// ChangePage moves to the requested page. In client mode this is pure
// arithmetic; in server mode it refetches.
func (c *ListController) ChangePage(ctx context.Context, rctx *model.RequestContext, page int) error {
	c.touch()
	if c.screen.Pagination.Mode == model.PaginationClient {
		pager := table.NewPager(page, c.limit, len(c.cache))
		c.page = pager.Page
		return nil
	}
	c.page = page
	if c.page < 1 {
		c.page = 1
	}
	return c.refresh(ctx, rctx)
}

// ChangeLimit changes the page size and returns to the first page.
func (c *ListController) ChangeLimit(ctx context.Context, rctx *model.RequestContext, limit int) error {
	c.touch()
	if limit < 1 || limit > 200 {
		return model.NewBadRequestError(fmt.Sprintf("invalid page size %d", limit))
	}
	c.limit = limit
	c.page = 1
	if c.screen.Pagination.Mode == model.PaginationServer {
		return c.refresh(ctx, rctx)
	}
	return nil
}

// OpenAdd opens the add dialog with a default-seeded draft.
func (c *ListController) OpenAdd() {
	c.touch()
	c.mode = ModeAdd
	c.activeID = ""
	c.draft = c.engine.OpenAdd()
	c.fieldErrors = nil
}

// OpenEdit opens the edit dialog seeded from the identified record.
func (c *ListController) OpenEdit(id string) error {
	c.touch()
	rec, ok := c.findRecord(id)
	if !ok {
		return model.NewNotFoundError(fmt.Sprintf("record %q not found on this screen", id))
	}
	c.mode = ModeEdit
	c.activeID = id
	c.draft = c.engine.OpenEdit(rec)
	c.fieldErrors = nil
	return nil
}

// OpenDelete opens the delete confirmation for the identified record.
func (c *ListController) OpenDelete(id string) error {
	c.touch()
	if _, ok := c.findRecord(id); !ok {
		return model.NewNotFoundError(fmt.Sprintf("record %q not found on this screen", id))
	}
	c.mode = ModeDelete
	c.activeID = id
	c.draft = nil
	c.fieldErrors = nil
	return nil
}

// SetField writes one field value into the open draft. Edits re-evaluate
// visibility on the next snapshot; they never clear hidden values.
func (c *ListController) SetField(key string, value any) error {
	c.touch()
	if c.mode != ModeAdd && c.mode != ModeEdit {
		return model.NewBadRequestError("no form is open")
	}
	if err := c.engine.Set(c.draft, key, value); err != nil {
		return err
	}
	c.fieldErrors = nil
	return nil
}

// Cancel discards the open dialog and its draft.
func (c *ListController) Cancel() {
	c.touch()
	c.mode = ModeView
	c.activeID = ""
	c.draft = nil
	c.fieldErrors = nil
}

// Submit validates the draft and sends the create or update. Validation
// failures keep the dialog open and never touch the network. A backend
// rejection keeps the dialog open with the backend's message; success
// closes it and refetches.
func (c *ListController) Submit(ctx context.Context, rctx *model.RequestContext, idemKey string) error {
	c.touch()
	if c.mode != ModeAdd && c.mode != ModeEdit {
		return model.NewBadRequestError("no form is open")
	}

	payload, fieldErrs := c.engine.Payload(c.draft)
	if len(fieldErrs) > 0 {
		c.fieldErrors = fieldErrs
		return nil
	}

	var (
		out model.MutationResult
		err error
	)
	if c.mode == ModeAdd {
		out, err = c.createWithIdempotency(ctx, rctx, payload, idemKey)
	} else {
		out, err = c.client.Update(ctx, rctx, c.activeID, payload)
	}
	if err != nil {
		c.notices.NotifyError(userMessage(err))
		if model.IsRejection(err) {
			// The dialog stays open so the user can correct and resubmit.
			return nil
		}
		return err
	}

	msg := out.Message
	if msg == "" {
		msg = fmt.Sprintf("%s saved", c.screen.Title)
	}
	c.notices.NotifySuccess(msg)

	created := c.mode == ModeAdd
	c.Cancel()
	if created && c.screen.Pagination.ResetOnCreate {
		c.page = 1
	}
	return c.refresh(ctx, rctx)
}

func (c *ListController) createWithIdempotency(ctx context.Context, rctx *model.RequestContext, payload map[string]any, idemKey string) (model.MutationResult, error) {
	if c.idem == nil || idemKey == "" {
		return c.client.Create(ctx, rctx, payload)
	}

	key := FormatIdempotencyKey(c.screen.ID, idemKey)
	hash := HashPayload(payload)

	cached, found, err := c.idem.Check(ctx, key, hash)
	if err != nil {
		return model.MutationResult{}, err
	}
	if found {
		c.logger.Debug("idempotent create replayed",
			zap.String("screen", c.screen.ID),
			zap.String("key", idemKey))
		return *cached, nil
	}

	out, err := c.client.Create(ctx, rctx, payload)
	if err != nil {
		return model.MutationResult{}, err
	}
	if storeErr := c.idem.Store(ctx, key, hash, out, c.idemTTL); storeErr != nil {
		c.logger.Warn("idempotency store failed", zap.Error(storeErr))
	}
	return out, nil
}

// ConfirmDelete executes the pending delete and refetches.
func (c *ListController) ConfirmDelete(ctx context.Context, rctx *model.RequestContext) error {
	c.touch()
	if c.mode != ModeDelete {
		return model.NewBadRequestError("no delete is pending")
	}

	out, err := c.client.Delete(ctx, rctx, c.activeID)
	if err != nil {
		c.notices.NotifyError(userMessage(err))
		if model.IsRejection(err) {
			c.Cancel()
			return nil
		}
		return err
	}

	msg := out.Message
	if msg == "" {
		msg = fmt.Sprintf("%s deleted", c.screen.Title)
	}
	c.notices.NotifySuccess(msg)

	c.Cancel()
	return c.refresh(ctx, rctx)
}

// Snapshot builds the current view state, draining pending notices.
func (c *ListController) Snapshot() Snapshot {
	var data model.DataPayload
	if c.screen.Pagination.Mode == model.PaginationClient {
		data = c.table.BuildClientPage(c.cache, c.page)
		c.page = data.Page
	} else {
		data = c.table.BuildServerPage(c.current, c.page)
	}

	snap := Snapshot{
		ScreenID:    c.screen.ID,
		Mode:        c.mode,
		Data:        data,
		ActiveID:    c.activeID,
		FieldErrors: c.fieldErrors,
		Notices:     c.notices.Drain(),
	}
	if c.mode == ModeAdd || c.mode == ModeEdit {
		snap.Draft = c.draft
		snap.Visible = c.engine.VisibleKeys(c.draft)
	}
	return snap
}

// findRecord locates a record by id in the loaded data.
func (c *ListController) findRecord(id string) (map[string]any, bool) {
	idField := c.screen.Resource.IDField
	if idField == "" {
		idField = "id"
	}

	rows := c.cache
	if c.screen.Pagination.Mode == model.PaginationServer {
		rows = c.current.Items
	}
	for _, rec := range rows {
		if fmt.Sprint(rec[idField]) == id {
			return rec, true
		}
	}
	return nil, false
}

// userMessage extracts the message a user should see from an error.
func userMessage(err error) string {
	return model.AsEnvelope(err).Message
}
