package service

import (
	"fmt"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// OperationKey identifies one operation instance: a kind and its target.
type OperationKey struct {
	Kind domain.OperationKind
	ID   int64
}

func (k OperationKey) String() string {
	return fmt.Sprintf("%s/%d", k.Kind, k.ID)
}

type transition struct {
	From domain.OperationStatus
	To   domain.OperationStatus
}

// idle -> running -> succeeded/failed -> idle (acknowledge)
// succeeded/failed -> running (re-trigger without acknowledging)
var allowedTransitions = map[transition]bool{
	{domain.StatusIdle, domain.StatusRunning}:      true,
	{domain.StatusRunning, domain.StatusSucceeded}: true,
	{domain.StatusRunning, domain.StatusFailed}:    true,
	{domain.StatusSucceeded, domain.StatusIdle}:    true,
	{domain.StatusFailed, domain.StatusIdle}:       true,
	{domain.StatusSucceeded, domain.StatusRunning}: true,
	{domain.StatusFailed, domain.StatusRunning}:    true,
}

// InvalidTransitionError is returned for a transition outside the table.
type InvalidTransitionError struct {
	Key  OperationKey
	From domain.OperationStatus
	To   domain.OperationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid operation state transition for %s: %s -> %s", e.Key, e.From, e.To)
}

// Tracker holds the progress state of every operation instance. A key in
// StatusRunning is the busy flag for that instance.
type Tracker struct {
	mu     sync.Mutex
	states map[OperationKey]*domain.OperationState
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		states: make(map[OperationKey]*domain.OperationState),
		now:    time.Now,
	}
}

func (t *Tracker) stateLocked(key OperationKey) *domain.OperationState {
	st, ok := t.states[key]
	if !ok {
		st = &domain.OperationState{Kind: key.Kind, TargetID: key.ID, Status: domain.StatusIdle}
		t.states[key] = st
	}
	return st
}

func (t *Tracker) moveLocked(key OperationKey, st *domain.OperationState, to domain.OperationStatus) error {
	if !allowedTransitions[transition{st.Status, to}] {
		err := &InvalidTransitionError{Key: key, From: st.Status, To: to}
		klog.V(6).Infof("operation transition rejected: %v", err)
		return err
	}
	klog.V(6).Infof("operation %s: %s -> %s", key, st.Status, to)
	st.Status = to
	return nil
}

// Begin marks key running. It returns false when the key is already
// running, in which case the trigger must be dropped.
func (t *Tracker) Begin(key OperationKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateLocked(key)
	if err := t.moveLocked(key, st, domain.StatusRunning); err != nil {
		return false
	}
	st.Progress = 0
	st.Err = nil
	st.StartedAt = t.now()
	st.FinishedAt = time.Time{}
	return true
}

// SetProgress records an estimate for a running key, clamped to [0,100].
// It is ignored once the key has finished.
func (t *Tracker) SetProgress(key OperationKey, pct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[key]
	if !ok || st.Status != domain.StatusRunning {
		return
	}
	st.Progress = clampProgress(pct)
}

// Finish moves a running key to succeeded (err == nil) or failed.
func (t *Tracker) Finish(key OperationKey, err error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.stateLocked(key)
	to := domain.StatusSucceeded
	if err != nil {
		to = domain.StatusFailed
	}
	if terr := t.moveLocked(key, st, to); terr != nil {
		return terr
	}
	if err == nil {
		st.Progress = 100
	}
	st.Err = err
	st.FinishedAt = t.now()
	return nil
}

// Acknowledge resets a finished key to idle, clearing progress and error.
// Acknowledging an idle or running key is a no-op.
func (t *Tracker) Acknowledge(key OperationKey) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[key]
	if !ok {
		return
	}
	if err := t.moveLocked(key, st, domain.StatusIdle); err != nil {
		return
	}
	delete(t.states, key)
}

// Snapshot returns a copy of the key's state; unknown keys are idle.
func (t *Tracker) Snapshot(key OperationKey) domain.OperationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.states[key]; ok {
		return *st
	}
	return domain.OperationState{Kind: key.Kind, TargetID: key.ID, Status: domain.StatusIdle}
}

// Busy reports whether key is running.
func (t *Tracker) Busy(key OperationKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[key]
	return ok && st.Status == domain.StatusRunning
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
