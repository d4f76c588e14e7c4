package model

import "time"

// Wizard instance statuses.
const (
	WizardStatusActive    = "active"
	WizardStatusCompleted = "completed"
	WizardStatusCancelled = "cancelled"
	WizardStatusExpired   = "expired"
)

// WizardInstance is one in-flight run of a multi-step wizard. Values
// accumulate in State across steps; the final step submits the combined
// payload.
type WizardInstance struct {
	ID          string         `json:"id"`
	WizardID    string         `json:"wizard_id"`
	OrgID       string         `json:"org_id"`
	SubjectID   string         `json:"subject_id"`
	CurrentStep string         `json:"current_step"`
	Status      string         `json:"status"`
	State       map[string]any `json:"state"`
	Version     int            `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
}

// WizardEvent is one entry in a wizard instance's audit trail.
type WizardEvent struct {
	ID         string         `json:"id"`
	InstanceID string         `json:"instance_id"`
	StepID     string         `json:"step_id"`
	Event      string         `json:"event"`
	ActorID    string         `json:"actor_id"`
	Data       map[string]any `json:"data,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// WizardView is the state returned to the frontend after each wizard
// operation: where the instance stands and what the current step asks for.
type WizardView struct {
	Instance    WizardInstance  `json:"instance"`
	StepIndex   int             `json:"step_index"`
	StepCount   int             `json:"step_count"`
	Step        *StepDefinition `json:"step,omitempty"`
	Result      *MutationResult `json:"result,omitempty"`
	FieldErrors []FieldError    `json:"field_errors,omitempty"`
}
