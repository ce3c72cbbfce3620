package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the current status of an acquisition run
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunAcquiring RunStatus = "acquiring"
	RunArmed     RunStatus = "armed"
	RunFailed    RunStatus = "failed"
	RunAbandoned RunStatus = "abandoned"
)

// Run records one acquisition run for a folder.
// Only metadata is stored; decoded audio never leaves memory.
type Run struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	Folder       string     `json:"folder" gorm:"not null;index"`
	Status       RunStatus  `json:"status" gorm:"not null;index"`
	VariantCount int        `json:"variant_count"`
	TotalBytes   int64      `json:"total_bytes"`
	ErrorMessage string     `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewRun creates a new queued run for a folder
func NewRun(folder string, variantCount int) *Run {
	now := time.Now()
	return &Run{
		ID:           uuid.New().String(),
		Folder:       folder,
		Status:       RunQueued,
		VariantCount: variantCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// MarkAcquiring marks the run as fetching and decoding
func (r *Run) MarkAcquiring() {
	r.Status = RunAcquiring
	now := time.Now()
	r.StartedAt = &now
	r.UpdatedAt = now
}

// MarkArmed marks the run as delivered to the renderer
func (r *Run) MarkArmed(totalBytes int64) {
	r.Status = RunArmed
	r.TotalBytes = totalBytes
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkFailed marks the run as failed
func (r *Run) MarkFailed(err error) {
	r.Status = RunFailed
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// MarkAbandoned marks a run that was replaced before it finished
func (r *Run) MarkAbandoned() {
	if r.IsTerminal() {
		return
	}
	r.Status = RunAbandoned
	now := time.Now()
	r.CompletedAt = &now
	r.UpdatedAt = now
}

// IsTerminal checks if the run is in a terminal state
func (r *Run) IsTerminal() bool {
	return r.Status == RunArmed || r.Status == RunFailed || r.Status == RunAbandoned
}

// Duration returns how long acquisition took, or zero while running
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}
