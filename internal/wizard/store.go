package wizard

import (
	"context"
	"time"

	"github.com/shiftwise/console/model"
)

// Store persists wizard instances and their audit trail.
type Store interface {
	// Create persists a new wizard instance.
	Create(ctx context.Context, inst model.WizardInstance) error

	// Get retrieves an instance by id, scoped to an organisation. Returns
	// NOT_FOUND if the instance does not exist or belongs to a different
	// organisation.
	Get(ctx context.Context, orgID, instanceID string) (model.WizardInstance, error)

	// Update persists an updated instance with optimistic locking. The
	// version must match the stored version; returns CONFLICT otherwise.
	Update(ctx context.Context, inst model.WizardInstance) error

	// AppendEvent adds an event to the instance's audit trail.
	AppendEvent(ctx context.Context, event model.WizardEvent) error

	// GetEvents retrieves all events for an instance ordered by timestamp,
	// scoped to an organisation.
	GetEvents(ctx context.Context, orgID, instanceID string) ([]model.WizardEvent, error)

	// FindActive returns active instances for an organisation, optionally
	// filtered by wizard id.
	FindActive(ctx context.Context, orgID string, filters Filters) ([]model.WizardInstance, error)

	// FindExpired returns active instances whose expires_at is before the
	// given cutoff.
	FindExpired(ctx context.Context, cutoff time.Time) ([]model.WizardInstance, error)

	// Delete removes an instance and its events.
	Delete(ctx context.Context, orgID, instanceID string) error
}

// Filters are optional filters for listing wizard instances.
type Filters struct {
	WizardID string
	Limit    int
	Offset   int
}
