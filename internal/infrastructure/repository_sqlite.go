package infrastructure

import (
	"errors"
	"fmt"

	"github.com/yourusername/bitswitch/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteRunRepository implements RunRepository using SQLite
type SQLiteRunRepository struct {
	db *gorm.DB
}

// NewSQLiteRunRepository creates a new SQLite repository
func NewSQLiteRunRepository(dbPath string) (*SQLiteRunRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRunRepository{db: db}, nil
}

// Create creates a new run
func (r *SQLiteRunRepository) Create(run *domain.Run) error {
	return r.db.Create(run).Error
}

// Update updates an existing run
func (r *SQLiteRunRepository) Update(run *domain.Run) error {
	return r.db.Save(run).Error
}

// FindByID finds a run by ID. Returns nil when absent.
func (r *SQLiteRunRepository) FindByID(id string) (*domain.Run, error) {
	var run domain.Run
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// FindRecent returns up to limit runs, newest first
func (r *SQLiteRunRepository) FindRecent(limit int) ([]*domain.Run, error) {
	var runs []*domain.Run
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// AbandonUnfinished marks runs left open by a previous process as abandoned
func (r *SQLiteRunRepository) AbandonUnfinished() (int64, error) {
	result := r.db.Model(&domain.Run{}).
		Where("status IN ?", []domain.RunStatus{domain.RunQueued, domain.RunAcquiring}).
		Update("status", domain.RunAbandoned)
	return result.RowsAffected, result.Error
}

// GetStats returns run statistics
func (r *SQLiteRunRepository) GetStats() (*domain.RunStats, error) {
	stats := &domain.RunStats{}

	if err := r.db.Model(&domain.Run{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.RunStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.Run{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.RunQueued, domain.RunAcquiring:
			stats.Acquiring += sc.Count
		case domain.RunArmed:
			stats.Armed = sc.Count
		case domain.RunFailed:
			stats.Failed = sc.Count
		case domain.RunAbandoned:
			stats.Abandoned = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRunRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
