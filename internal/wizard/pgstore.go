package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shiftwise/console/model"
)

// PgStore is a PostgreSQL-backed Store using pgx/v5.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new PostgreSQL wizard store.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Create inserts a new wizard instance.
func (s *PgStore) Create(ctx context.Context, inst model.WizardInstance) error {
	stateJSON, err := json.Marshal(inst.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO wizard_instances (
			id, wizard_id, org_id, subject_id,
			current_step, status, state, version,
			created_at, updated_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		inst.ID, inst.WizardID, inst.OrgID, inst.SubjectID,
		inst.CurrentStep, inst.Status, stateJSON, inst.Version,
		inst.CreatedAt, inst.UpdatedAt, inst.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert wizard instance: %w", err)
	}
	return nil
}

// Get retrieves an instance by id, scoped to an organisation.
func (s *PgStore) Get(ctx context.Context, orgID, instanceID string) (model.WizardInstance, error) {
	var inst model.WizardInstance
	var stateJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT id, wizard_id, org_id, subject_id,
		       current_step, status, state, version,
		       created_at, updated_at, expires_at
		FROM wizard_instances
		WHERE id = $1 AND org_id = $2`,
		instanceID, orgID,
	).Scan(
		&inst.ID, &inst.WizardID, &inst.OrgID, &inst.SubjectID,
		&inst.CurrentStep, &inst.Status, &stateJSON, &inst.Version,
		&inst.CreatedAt, &inst.UpdatedAt, &inst.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.WizardInstance{}, model.NewNotFoundError(
			fmt.Sprintf("wizard instance %q not found", instanceID),
		)
	}
	if err != nil {
		return model.WizardInstance{}, fmt.Errorf("query wizard instance: %w", err)
	}

	if stateJSON != nil {
		if err := json.Unmarshal(stateJSON, &inst.State); err != nil {
			return model.WizardInstance{}, fmt.Errorf("unmarshal state: %w", err)
		}
	}

	return inst, nil
}

// Update persists an updated instance with optimistic locking.
func (s *PgStore) Update(ctx context.Context, inst model.WizardInstance) error {
	stateJSON, err := json.Marshal(inst.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE wizard_instances SET
			current_step = $1,
			status = $2,
			state = $3,
			version = $4,
			updated_at = $5,
			expires_at = $6
		WHERE id = $7 AND version = $8`,
		inst.CurrentStep, inst.Status, stateJSON, inst.Version+1,
		time.Now().UTC(), inst.ExpiresAt,
		inst.ID, inst.Version,
	)
	if err != nil {
		return fmt.Errorf("update wizard instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewConflictError(
			fmt.Sprintf("wizard instance %q version conflict (expected %d)", inst.ID, inst.Version),
		)
	}
	return nil
}

// AppendEvent adds an event to the instance's audit trail.
func (s *PgStore) AppendEvent(ctx context.Context, event model.WizardEvent) error {
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO wizard_events (
			id, instance_id, step_id, event, actor_id, data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.InstanceID, event.StepID, event.Event,
		event.ActorID, dataJSON, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert wizard event: %w", err)
	}
	return nil
}

// GetEvents retrieves all events for an instance.
func (s *PgStore) GetEvents(ctx context.Context, orgID, instanceID string) ([]model.WizardEvent, error) {
	if _, err := s.Get(ctx, orgID, instanceID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, instance_id, step_id, event, actor_id, data, created_at
		FROM wizard_events
		WHERE instance_id = $1
		ORDER BY created_at ASC`,
		instanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("query wizard events: %w", err)
	}
	defer rows.Close()

	var events []model.WizardEvent
	for rows.Next() {
		var evt model.WizardEvent
		var dataJSON []byte
		if err := rows.Scan(
			&evt.ID, &evt.InstanceID, &evt.StepID, &evt.Event,
			&evt.ActorID, &dataJSON, &evt.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan wizard event: %w", err)
		}
		if dataJSON != nil {
			_ = json.Unmarshal(dataJSON, &evt.Data)
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

// FindActive returns active instances for an organisation.
func (s *PgStore) FindActive(ctx context.Context, orgID string, filters Filters) ([]model.WizardInstance, error) {
	query := `SELECT id, wizard_id, org_id, subject_id,
	                 current_step, status, state, version,
	                 created_at, updated_at, expires_at
	          FROM wizard_instances
	          WHERE org_id = $1 AND status = 'active'`
	args := []any{orgID}
	argIdx := 2

	if filters.WizardID != "" {
		query += fmt.Sprintf(" AND wizard_id = $%d", argIdx)
		args = append(args, filters.WizardID)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	return s.queryInstances(ctx, query, args...)
}

// FindExpired returns active instances past their expiration time.
func (s *PgStore) FindExpired(ctx context.Context, cutoff time.Time) ([]model.WizardInstance, error) {
	query := `SELECT id, wizard_id, org_id, subject_id,
	                 current_step, status, state, version,
	                 created_at, updated_at, expires_at
	          FROM wizard_instances
	          WHERE status = 'active' AND expires_at IS NOT NULL AND expires_at < $1
	          ORDER BY expires_at ASC`
	return s.queryInstances(ctx, query, cutoff)
}

// Delete removes an instance and its events.
func (s *PgStore) Delete(ctx context.Context, orgID, instanceID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM wizard_events
		WHERE instance_id = $1
		AND instance_id IN (SELECT id FROM wizard_instances WHERE org_id = $2)`,
		instanceID, orgID,
	)
	if err != nil {
		return fmt.Errorf("delete wizard events: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM wizard_instances
		WHERE id = $1 AND org_id = $2`,
		instanceID, orgID,
	)
	if err != nil {
		return fmt.Errorf("delete wizard instance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.NewNotFoundError(
			fmt.Sprintf("wizard instance %q not found", instanceID),
		)
	}
	return nil
}

func (s *PgStore) queryInstances(ctx context.Context, query string, args ...any) ([]model.WizardInstance, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query wizard instances: %w", err)
	}
	defer rows.Close()

	var instances []model.WizardInstance
	for rows.Next() {
		var inst model.WizardInstance
		var stateJSON []byte
		if err := rows.Scan(
			&inst.ID, &inst.WizardID, &inst.OrgID, &inst.SubjectID,
			&inst.CurrentStep, &inst.Status, &stateJSON, &inst.Version,
			&inst.CreatedAt, &inst.UpdatedAt, &inst.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan wizard instance: %w", err)
		}
		if stateJSON != nil {
			_ = json.Unmarshal(stateJSON, &inst.State)
		}
		instances = append(instances, inst)
	}
	return instances, rows.Err()
}

// HealthCheck reports whether the database is reachable.
func (s *PgStore) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
