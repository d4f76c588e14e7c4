package resource

import (
	"context"
	"strconv"

	"github.com/shiftwise/console/model"
)

// Client wraps the four CRUD operations of one screen's resource binding.
// List, Create, Update, and Delete all inject the caller's organisation id
// and normalize the backend's envelope before returning.
type Client struct {
	inv     *Invoker
	binding model.ResourceBinding
}

// NewClient creates a resource client for the given binding.
func NewClient(inv *Invoker, binding model.ResourceBinding) *Client {
	return &Client{inv: inv, binding: binding}
}

// Binding returns the client's resource binding.
func (c *Client) Binding() model.ResourceBinding {
	return c.binding
}

func (c *Client) idField() string {
	if c.binding.IDField != "" {
		return c.binding.IDField
	}
	return "id"
}

// List fetches records. Pages are 1-indexed; page 0 omits pagination
// parameters entirely and asks the backend for the full row set.
func (c *Client) List(ctx context.Context, rctx *model.RequestContext, page, limit int) (model.RecordPage, error) {
	query := map[string]string{"org_id": rctx.OrgID}
	if page > 0 {
		query["page"] = strconv.Itoa(page)
		query["limit"] = strconv.Itoa(limit)
	}

	res, err := c.inv.Invoke(ctx, rctx, c.binding.ServiceID, c.binding.ListOp, Input{
		QueryParams: query,
	})
	if err != nil {
		return model.RecordPage{}, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return model.RecordPage{}, statusError(res)
	}

	return NormalizeList(res.Body, c.binding)
}

// Create submits a new record payload.
func (c *Client) Create(ctx context.Context, rctx *model.RequestContext, payload map[string]any) (model.MutationResult, error) {
	if c.binding.CreateOp == "" {
		return model.MutationResult{}, model.NewBadRequestError("this resource does not support create")
	}

	body := withOrg(payload, rctx.OrgID)
	if err := c.inv.ValidateBody(c.binding.ServiceID, c.binding.CreateOp, body); err != nil {
		return model.MutationResult{}, err
	}
	res, err := c.inv.Invoke(ctx, rctx, c.binding.ServiceID, c.binding.CreateOp, Input{
		Body: body,
	})
	if err != nil {
		return model.MutationResult{}, err
	}
	return NormalizeMutation(res)
}

// Update submits changed values for an existing record. The record id rides
// both the path (when the operation declares a path parameter) and the
// payload, matching what the backends expect.
func (c *Client) Update(ctx context.Context, rctx *model.RequestContext, id string, payload map[string]any) (model.MutationResult, error) {
	if c.binding.UpdateOp == "" {
		return model.MutationResult{}, model.NewBadRequestError("this resource does not support update")
	}

	body := withOrg(payload, rctx.OrgID)
	body[c.idField()] = id

	if err := c.inv.ValidateBody(c.binding.ServiceID, c.binding.UpdateOp, body); err != nil {
		return model.MutationResult{}, err
	}
	res, err := c.inv.Invoke(ctx, rctx, c.binding.ServiceID, c.binding.UpdateOp, Input{
		RecordID: id,
		Body:     body,
	})
	if err != nil {
		return model.MutationResult{}, err
	}
	return NormalizeMutation(res)
}

// Delete removes a record. The id travels as query parameters or as a JSON
// body depending on the binding's declared delete style.
func (c *Client) Delete(ctx context.Context, rctx *model.RequestContext, id string) (model.MutationResult, error) {
	if c.binding.DeleteOp == "" {
		return model.MutationResult{}, model.NewBadRequestError("this resource does not support delete")
	}

	input := Input{RecordID: id}
	switch c.binding.DeleteStyle {
	case model.DeleteStyleBody:
		input.Body = map[string]any{c.idField(): id, "org_id": rctx.OrgID}
	default:
		input.QueryParams = map[string]string{c.idField(): id, "org_id": rctx.OrgID}
	}

	res, err := c.inv.Invoke(ctx, rctx, c.binding.ServiceID, c.binding.DeleteOp, input)
	if err != nil {
		return model.MutationResult{}, err
	}
	return NormalizeMutation(res)
}

func withOrg(payload map[string]any, orgID string) map[string]any {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	if _, ok := body["org_id"]; !ok {
		body["org_id"] = orgID
	}
	return body
}
