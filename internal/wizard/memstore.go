package wizard

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shiftwise/console/model"
)

// MemoryStore is an in-memory Store for testing and single-instance
// deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	instances map[string]model.WizardInstance
	events    map[string][]model.WizardEvent
}

// NewMemoryStore creates a new in-memory wizard store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instances: make(map[string]model.WizardInstance),
		events:    make(map[string][]model.WizardEvent),
	}
}

// Create persists a new wizard instance.
func (s *MemoryStore) Create(_ context.Context, inst model.WizardInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.instances[inst.ID]; exists {
		return model.NewConflictError(
			fmt.Sprintf("wizard instance %q already exists", inst.ID),
		)
	}

	s.instances[inst.ID] = inst
	return nil
}

// Get retrieves an instance by id, scoped to an organisation.
func (s *MemoryStore) Get(_ context.Context, orgID, instanceID string) (model.WizardInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.instances[instanceID]
	if !exists || inst.OrgID != orgID {
		return model.WizardInstance{}, model.NewNotFoundError(
			fmt.Sprintf("wizard instance %q not found", instanceID),
		)
	}
	return inst, nil
}

// Update persists an updated instance with optimistic locking.
func (s *MemoryStore) Update(_ context.Context, inst model.WizardInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.instances[inst.ID]
	if !exists {
		return model.NewNotFoundError(
			fmt.Sprintf("wizard instance %q not found", inst.ID),
		)
	}

	if existing.Version != inst.Version {
		return model.NewConflictError(
			fmt.Sprintf("wizard instance %q version conflict (expected %d, got %d)",
				inst.ID, inst.Version, existing.Version),
		)
	}

	inst.Version++
	inst.UpdatedAt = time.Now().UTC()
	s.instances[inst.ID] = inst
	return nil
}

// AppendEvent adds an event to the instance's audit trail.
func (s *MemoryStore) AppendEvent(_ context.Context, event model.WizardEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.InstanceID] = append(s.events[event.InstanceID], event)
	return nil
}

// GetEvents retrieves all events for an instance, ordered by timestamp.
func (s *MemoryStore) GetEvents(_ context.Context, orgID, instanceID string) ([]model.WizardEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, exists := s.instances[instanceID]
	if !exists || inst.OrgID != orgID {
		return nil, model.NewNotFoundError(
			fmt.Sprintf("wizard instance %q not found", instanceID),
		)
	}

	events := s.events[instanceID]
	result := make([]model.WizardEvent, len(events))
	copy(result, events)
	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// FindActive returns active instances for an organisation.
func (s *MemoryStore) FindActive(_ context.Context, orgID string, filters Filters) ([]model.WizardInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.WizardInstance
	for _, inst := range s.instances {
		if inst.OrgID != orgID || inst.Status != model.WizardStatusActive {
			continue
		}
		if filters.WizardID != "" && inst.WizardID != filters.WizardID {
			continue
		}
		result = append(result, inst)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return []model.WizardInstance{}, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(result) {
		result = result[:filters.Limit]
	}

	return result, nil
}

// FindExpired returns active instances past their expiration time.
func (s *MemoryStore) FindExpired(_ context.Context, cutoff time.Time) ([]model.WizardInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.WizardInstance
	for _, inst := range s.instances {
		if inst.Status != model.WizardStatusActive {
			continue
		}
		if inst.ExpiresAt == nil || !inst.ExpiresAt.Before(cutoff) {
			continue
		}
		result = append(result, inst)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExpiresAt.Before(*result[j].ExpiresAt)
	})

	return result, nil
}

// Delete removes an instance and its events.
func (s *MemoryStore) Delete(_ context.Context, orgID, instanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, exists := s.instances[instanceID]
	if !exists || inst.OrgID != orgID {
		return model.NewNotFoundError(
			fmt.Sprintf("wizard instance %q not found", instanceID),
		)
	}

	delete(s.instances, instanceID)
	delete(s.events, instanceID)
	return nil
}

// Len returns the total number of instances. For testing.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.instances)
}
