package domain

// RunRepository defines the interface for run history persistence
type RunRepository interface {
	// Create creates a new run
	Create(run *Run) error

	// Update updates an existing run
	Update(run *Run) error

	// FindByID finds a run by ID
	FindByID(id string) (*Run, error)

	// FindRecent returns the most recent runs, newest first
	FindRecent(limit int) ([]*Run, error)

	// GetStats returns run statistics
	GetStats() (*RunStats, error)
}

// RunStats represents run statistics
type RunStats struct {
	Total     int64 `json:"total"`
	Acquiring int64 `json:"acquiring"`
	Armed     int64 `json:"armed"`
	Failed    int64 `json:"failed"`
	Abandoned int64 `json:"abandoned"`
}
