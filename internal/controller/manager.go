package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shiftwise/console/internal/definition"
	"github.com/shiftwise/console/internal/resource"
	"github.com/shiftwise/console/model"
)

// session wraps a controller with its own lock so events on one screen
// session are serialized without blocking other sessions.
type session struct {
	mu   sync.Mutex
	ctrl *ListController
}

// Manager creates and caches one ListController per subject, organisation,
// and screen. Idle sessions expire; a definition reload drops everything.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	registry *definition.Registry
	invoker  *resource.Invoker
	idem     IdempotencyStore
	idemTTL  time.Duration
	idle     time.Duration
	logger   *zap.Logger
}

// NewManager creates a session manager.
func NewManager(registry *definition.Registry, invoker *resource.Invoker, idem IdempotencyStore, idemTTL, idle time.Duration, logger *zap.Logger) *Manager {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Manager{
		sessions: make(map[string]*session),
		registry: registry,
		invoker:  invoker,
		idem:     idem,
		idemTTL:  idemTTL,
		idle:     idle,
		logger:   logger,
	}
}

func sessionKey(rctx *model.RequestContext, screenID string) string {
	return rctx.OrgID + "/" + rctx.SubjectID + "/" + screenID
}

// Handle loads the session for the subject and screen, applies the event
// under the session lock, and returns the resulting view state.
func (m *Manager) Handle(ctx context.Context, rctx *model.RequestContext, screenID string, ev Event) (Snapshot, error) {
	s, err := m.acquire(rctx, screenID)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.Load(ctx, rctx); err != nil {
		return Snapshot{}, err
	}
	return s.ctrl.Dispatch(ctx, rctx, ev)
}

// State loads the session and returns its current view state without
// applying an event. Used when a screen mounts.
func (m *Manager) State(ctx context.Context, rctx *model.RequestContext, screenID string) (Snapshot, error) {
	s, err := m.acquire(rctx, screenID)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ctrl.Load(ctx, rctx); err != nil {
		return Snapshot{}, err
	}
	return s.ctrl.Snapshot(), nil
}

func (m *Manager) acquire(rctx *model.RequestContext, screenID string) (*session, error) {
	key := sessionKey(rctx, screenID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[key]; ok {
		return s, nil
	}

	screen, ok := m.registry.GetScreen(screenID)
	if !ok {
		return nil, model.NewNotFoundError(fmt.Sprintf("screen %q not found", screenID))
	}

	client := resource.NewClient(m.invoker, screen.Resource)
	s := &session{ctrl: New(screen, client, m.idem, m.idemTTL, m.logger)}
	m.sessions[key] = s

	m.logger.Debug("screen session created",
		zap.String("screen", screenID),
		zap.String("subject", rctx.SubjectID))
	return s, nil
}

// Reset drops all sessions. Called after a definition reload so stale
// screen shapes cannot linger.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*session)
}

// Len returns the number of live sessions. For diagnostics and tests.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle beyond the configured timeout.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-m.idle)
	for key, s := range m.sessions {
		if s.ctrl.LastUsed().Before(cutoff) {
			delete(m.sessions, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on the given interval until the context ends.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
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
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("expired screen sessions removed", zap.Int("count", n))
				}
			}
		}
	}()
}
