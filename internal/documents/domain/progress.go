package domain

import "time"

// OperationKind names one of the long-running workflow operations.
type OperationKind string

const (
	OpOutline  OperationKind = "outline"
	OpGenerate OperationKind = "generate"
	OpRefine   OperationKind = "refine"
	OpExport   OperationKind = "export"
)

// OperationStatus is the state of one operation instance.
type OperationStatus string

const (
	StatusIdle      OperationStatus = "idle"
	StatusRunning   OperationStatus = "running"
	StatusSucceeded OperationStatus = "succeeded"
	StatusFailed    OperationStatus = "failed"
)

// OperationState is the ephemeral progress/error state of an operation.
// TargetID is the project id (generate, export), the section id (refine) or
// zero (outline).
type OperationState struct {
	Kind       OperationKind   `json:"kind"`
	TargetID   int64           `json:"target_id"`
	Status     OperationStatus `json:"status"`
	Progress   float64         `json:"progress"`
	Err        error           `json:"-"`
	StartedAt  time.Time       `json:"started_at,omitempty"`
	FinishedAt time.Time       `json:"finished_at,omitempty"`
}

// ProgressEvent is published on every workflow state change.
type ProgressEvent struct {
	Kind      OperationKind   `json:"kind"`
	TargetID  int64           `json:"target_id"`
	ProjectID int64           `json:"project_id,omitempty"`
	Status    OperationStatus `json:"status"`
	Progress  float64         `json:"progress"`
	Error     string          `json:"error,omitempty"`
	At        time.Time       `json:"at"`
}
