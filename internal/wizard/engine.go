package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/form"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/model"
)

// Engine manages the lifecycle of wizard instances: step-at-a-time value
// accumulation, between-step enrichment, and the final create call.
type Engine struct {
	registry    *definition.Registry
	store       Store
	invoker     *resource.Invoker
	capResolver model.CapabilityResolver
	logger      *zap.Logger
}

// NewEngine creates a wizard engine. The capability resolver may be nil
// when capability checks happen upstream.
func NewEngine(
	registry *definition.Registry,
	store Store,
	invoker *resource.Invoker,
	capResolver model.CapabilityResolver,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		registry:    registry,
		store:       store,
		invoker:     invoker,
		capResolver: capResolver,
		logger:      logger,
	}
}

// Start creates a new wizard instance positioned at the first step.
// Initial input seeds the state (e.g. values carried from the screen that
// launched the wizard).
func (e *Engine) Start(
	ctx context.Context,
	rctx *model.RequestContext,
	wizardID string,
	input map[string]any,
) (model.WizardView, error) {
	def, ok := e.registry.GetWizard(wizardID)
	if !ok {
		return model.WizardView{}, &model.ErrorEnvelope{
			Code:    model.ErrWizardNotFound,
			Message: fmt.Sprintf("wizard %q not found", wizardID),
		}
	}

	if len(def.Capabilities) > 0 && e.capResolver != nil {
		caps, err := e.capResolver.Resolve(rctx)
		if err != nil {
			return model.WizardView{}, fmt.Errorf("resolve capabilities: %w", err)
		}
		if !caps.HasAll(def.Capabilities...) {
			return model.WizardView{}, model.NewForbiddenError(
				fmt.Sprintf("insufficient capabilities for wizard %q", wizardID),
			)
		}
	}

	if len(def.Steps) == 0 {
		return model.WizardView{}, model.NewBadRequestError(
			fmt.Sprintf("wizard %q has no steps", wizardID),
		)
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if def.Timeout != "" {
		if dur, err := time.ParseDuration(def.Timeout); err == nil {
			exp := now.Add(dur)
			expiresAt = &exp
		}
	}

	state := make(map[string]any, len(input))
	for k, v := range input {
		state[k] = v
	}

	inst := model.WizardInstance{
		ID:          uuid.New().String(),
		WizardID:    wizardID,
		OrgID:       rctx.OrgID,
		SubjectID:   rctx.SubjectID,
		CurrentStep: def.Steps[0].ID,
		Status:      model.WizardStatusActive,
		State:       state,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if err := e.store.Create(ctx, inst); err != nil {
		return model.WizardView{}, err
	}
	e.appendEvent(ctx, inst.ID, inst.CurrentStep, "started", rctx.SubjectID, nil)

	return e.view(def, inst, nil, nil), nil
}

// Get returns the current state of an instance. An active instance past
// its expiry is transitioned to expired first.
func (e *Engine) Get(ctx context.Context, rctx *model.RequestContext, instanceID string) (model.WizardView, error) {
	inst, err := e.store.Get(ctx, rctx.OrgID, instanceID)
	if err != nil {
		return model.WizardView{}, err
	}

	if expired(inst) {
		inst.Status = model.WizardStatusExpired
		if err := e.store.Update(ctx, inst); err == nil {
			inst.Version++
		}
		e.appendEvent(ctx, inst.ID, inst.CurrentStep, "expired", "", nil)
	}

	def, ok := e.registry.GetWizard(inst.WizardID)
	if !ok {
		return model.WizardView{}, model.NewNotFoundError(
			fmt.Sprintf("wizard %q not found", inst.WizardID),
		)
	}
	return e.view(def, inst, nil, nil), nil
}

// Advance validates the submitted values against the current step, merges
// them into the state, runs the step's enrichment, and moves to the next
// step. Advancing past the last step submits the combined payload.
func (e *Engine) Advance(
	ctx context.Context,
	rctx *model.RequestContext,
	instanceID string,
	values map[string]any,
) (model.WizardView, error) {
	inst, def, err := e.loadActive(ctx, rctx, instanceID)
	if err != nil {
		return model.WizardView{}, err
	}

	idx := stepIndex(def, inst.CurrentStep)
	if idx < 0 {
		return model.WizardView{}, model.NewInternalError()
	}
	step := def.Steps[idx]

	// Validate only the current step's fields against the merged state.
	draft := model.Draft(inst.State).Clone()
	for _, f := range step.Fields {
		if v, ok := values[f.Key]; ok {
			draft[f.Key] = v
		}
	}
	stepForm := form.NewEngine(step.Fields, model.SubmitMapping{})
	if errs := stepForm.Validate(draft); len(errs) > 0 {
		return e.view(def, inst, nil, errs), nil
	}

	inst.State = draft
	if step.Enrich != nil {
		if err := e.enrich(ctx, rctx, &inst, step.Enrich); err != nil {
			return model.WizardView{}, err
		}
	}
	e.appendEvent(ctx, inst.ID, step.ID, "step_completed", rctx.SubjectID, values)

	if idx == len(def.Steps)-1 {
		return e.submit(ctx, rctx, inst, def)
	}

	inst.CurrentStep = def.Steps[idx+1].ID
	if err := e.store.Update(ctx, inst); err != nil {
		return model.WizardView{}, err
	}
	inst.Version++
	return e.view(def, inst, nil, nil), nil
}

// Back moves the instance to the previous step. Accumulated values are
// kept so the step re-renders with what was entered.
func (e *Engine) Back(ctx context.Context, rctx *model.RequestContext, instanceID string) (model.WizardView, error) {
	inst, def, err := e.loadActive(ctx, rctx, instanceID)
	if err != nil {
		return model.WizardView{}, err
	}

	idx := stepIndex(def, inst.CurrentStep)
	if idx <= 0 {
		return model.WizardView{}, model.NewBadRequestError("already at the first step")
	}

	inst.CurrentStep = def.Steps[idx-1].ID
	if err := e.store.Update(ctx, inst); err != nil {
		return model.WizardView{}, err
	}
	inst.Version++
	e.appendEvent(ctx, inst.ID, inst.CurrentStep, "step_entered", rctx.SubjectID, nil)

	return e.view(def, inst, nil, nil), nil
}

// Cancel marks an active instance cancelled.
func (e *Engine) Cancel(ctx context.Context, rctx *model.RequestContext, instanceID string) (model.WizardView, error) {
	inst, def, err := e.loadActive(ctx, rctx, instanceID)
	if err != nil {
		return model.WizardView{}, err
	}

	inst.Status = model.WizardStatusCancelled
	if err := e.store.Update(ctx, inst); err != nil {
		return model.WizardView{}, err
	}
	inst.Version++
	e.appendEvent(ctx, inst.ID, inst.CurrentStep, "cancelled", rctx.SubjectID, nil)

	return e.view(def, inst, nil, nil), nil
}

// Events returns the audit trail for an instance.
func (e *Engine) Events(ctx context.Context, rctx *model.RequestContext, instanceID string) ([]model.WizardEvent, error) {
	return e.store.GetEvents(ctx, rctx.OrgID, instanceID)
}

// Active lists the caller's active instances of a wizard, newest first.
func (e *Engine) Active(ctx context.Context, rctx *model.RequestContext, wizardID string) ([]model.WizardInstance, error) {
	return e.store.FindActive(ctx, rctx.OrgID, Filters{WizardID: wizardID})
}

// ExpireStale transitions active instances past their expiry. Returns the
// number of instances expired.
func (e *Engine) ExpireStale(ctx context.Context) int {
	stale, err := e.store.FindExpired(ctx, time.Now().UTC())
	if err != nil {
		e.logger.Warn("wizard expiry scan failed", zap.Error(err))
		return 0
	}

	expiredCount := 0
	for _, inst := range stale {
		inst.Status = model.WizardStatusExpired
		if err := e.store.Update(ctx, inst); err != nil {
			// Lost the race with a concurrent update; skip.
			continue
		}
		e.appendEvent(ctx, inst.ID, inst.CurrentStep, "expired", "", nil)
		expiredCount++
	}
	return expiredCount
}

// StartExpiryLoop runs ExpireStale on the given interval until the context
// ends.
func (e *Engine) StartExpiryLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := e.ExpireStale(ctx); n > 0 {
					e.logger.Info("wizard instances expired", zap.Int("count", n))
				}
			}
		}
	}()
}

// submit builds the combined payload from all step fields and calls the
// wizard's create operation. A rejection keeps the instance active so the
// user can correct and resubmit.
func (e *Engine) submit(
	ctx context.Context,
	rctx *model.RequestContext,
	inst model.WizardInstance,
	def model.WizardDefinition,
) (model.WizardView, error) {
	var fields []model.FieldDefinition
	for _, step := range def.Steps {
		fields = append(fields, step.Fields...)
	}

	combined := form.NewEngine(fields, def.Submit)
	payload, errs := combined.Payload(model.Draft(inst.State))
	if len(errs) > 0 {
		return e.view(def, inst, nil, errs), nil
	}

	// Enrichment outputs are part of the create payload even though no
	// form field declares them.
	for _, step := range def.Steps {
		if step.Enrich == nil {
			continue
		}
		for stateKey := range step.Enrich.Merge {
			if v, ok := inst.State[stateKey]; ok {
				payload[stateKey] = v
			}
		}
	}
	payload["org_id"] = rctx.OrgID

	res, err := e.invoker.Invoke(ctx, rctx, def.Create.ServiceID, def.Create.OperationID, resource.Input{
		Body: payload,
	})
	if err != nil {
		return model.WizardView{}, err
	}

	out, err := resource.NormalizeMutation(res)
	if err != nil {
		if model.IsRejection(err) {
			rejected := model.MutationResult{Success: false, Message: model.AsEnvelope(err).Message}
			return e.view(def, inst, &rejected, nil), nil
		}
		return model.WizardView{}, err
	}

	inst.Status = model.WizardStatusCompleted
	if err := e.store.Update(ctx, inst); err != nil {
		return model.WizardView{}, err
	}
	inst.Version++
	e.appendEvent(ctx, inst.ID, inst.CurrentStep, "submitted", rctx.SubjectID, nil)

	return e.view(def, inst, &out, nil), nil
}

// enrich invokes the step's enrichment operation and merges mapped
// response values into the state.
func (e *Engine) enrich(
	ctx context.Context,
	rctx *model.RequestContext,
	inst *model.WizardInstance,
	binding *model.EnrichBinding,
) error {
	query := make(map[string]string, len(binding.Params))
	for param, stateKey := range binding.Params {
		if v, ok := inst.State[stateKey]; ok {
			query[param] = fmt.Sprint(v)
		}
	}

	res, err := e.invoker.Invoke(ctx, rctx, binding.Operation.ServiceID, binding.Operation.OperationID, resource.Input{
		QueryParams: query,
	})
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return model.NewBadRequestError(
			fmt.Sprintf("enrichment operation %q returned status %d", binding.Operation.OperationID, res.StatusCode),
		)
	}

	for stateKey, path := range binding.Merge {
		if v, ok := resource.NavigatePath(res.Body, path); ok {
			inst.State[stateKey] = v
		}
	}
	return nil
}

// loadActive fetches an instance and verifies it can still accept events.
func (e *Engine) loadActive(
	ctx context.Context,
	rctx *model.RequestContext,
	instanceID string,
) (model.WizardInstance, model.WizardDefinition, error) {
	inst, err := e.store.Get(ctx, rctx.OrgID, instanceID)
	if err != nil {
		return model.WizardInstance{}, model.WizardDefinition{}, err
	}

	if expired(inst) {
		inst.Status = model.WizardStatusExpired
		if updateErr := e.store.Update(ctx, inst); updateErr == nil {
			e.appendEvent(ctx, inst.ID, inst.CurrentStep, "expired", "", nil)
		}
		return model.WizardInstance{}, model.WizardDefinition{}, model.NewWizardExpiredError(
			fmt.Sprintf("wizard instance %q has expired", instanceID),
		)
	}
	if inst.Status != model.WizardStatusActive {
		return model.WizardInstance{}, model.WizardDefinition{}, model.NewWizardNotActiveError(
			fmt.Sprintf("wizard instance %q is %s", instanceID, inst.Status),
		)
	}

	def, ok := e.registry.GetWizard(inst.WizardID)
	if !ok {
		return model.WizardInstance{}, model.WizardDefinition{}, model.NewNotFoundError(
			fmt.Sprintf("wizard %q not found", inst.WizardID),
		)
	}
	return inst, def, nil
}

func (e *Engine) appendEvent(ctx context.Context, instanceID, stepID, event, actorID string, data map[string]any) {
	err := e.store.AppendEvent(ctx, model.WizardEvent{
		ID:         uuid.New().String(),
		InstanceID: instanceID,
		StepID:     stepID,
		Event:      event,
		ActorID:    actorID,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("wizard event append failed",
			zap.String("instance", instanceID),
			zap.String("event", event),
			zap.Error(err))
	}
}

func (e *Engine) view(
	def model.WizardDefinition,
	inst model.WizardInstance,
	result *model.MutationResult,
	fieldErrors []model.FieldError,
) model.WizardView {
	v := model.WizardView{
		Instance:    inst,
		StepCount:   len(def.Steps),
		Result:      result,
		FieldErrors: fieldErrors,
	}
	if idx := stepIndex(def, inst.CurrentStep); idx >= 0 {
		v.StepIndex = idx
		if inst.Status == model.WizardStatusActive {
			step := def.Steps[idx]
			v.Step = &step
		}
	}
	return v
}

func stepIndex(def model.WizardDefinition, stepID string) int {
	for i, s := range def.Steps {
		if s.ID == stepID {
			return i
		}
	}
	return -1
}

func expired(inst model.WizardInstance) bool {
	return inst.Status == model.WizardStatusActive &&
		inst.ExpiresAt != nil && inst.ExpiresAt.Before(time.Now().UTC())
}
