package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/bitswitch/internal/domain"
)

func setupTestRepo(t *testing.T) (*SQLiteRunRepository, func()) {
	t.Helper()
	tmpDir, err := os.MkdirTemp("", "repo-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewSQLiteRunRepository(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}
	return repo, cleanup
}

func TestRunRepository_CreateAndFind(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	run := domain.NewRun("jazz", 10)
	run.MarkAcquiring()
	require.NoError(t, repo.Create(run))

	found, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "jazz", found.Folder)
	assert.Equal(t, domain.RunAcquiring, found.Status)
	assert.Equal(t, 10, found.VariantCount)
	assert.NotNil(t, found.StartedAt)
}

func TestRunRepository_FindByIDMissing(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	found, err := repo.FindByID("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRunRepository_Update(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	run := domain.NewRun("jazz", 3)
	require.NoError(t, repo.Create(run))

	run.MarkAcquiring()
	run.MarkArmed(4096)
	require.NoError(t, repo.Update(run))

	found, err := repo.FindByID(run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunArmed, found.Status)
	assert.Equal(t, int64(4096), found.TotalBytes)
	assert.NotNil(t, found.CompletedAt)
}

func TestRunRepository_FindRecent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	base := time.Now().Add(-time.Hour)
	for i, folder := range []string{"a", "b", "c"} {
		run := domain.NewRun(folder, 1)
		run.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(run))
	}

	runs, err := repo.FindRecent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].Folder)
	assert.Equal(t, "b", runs[1].Folder)

	all, err := repo.FindRecent(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRunRepository_GetStats(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	armed := domain.NewRun("a", 2)
	armed.MarkArmed(10)
	failed := domain.NewRun("b", 2)
	failed.MarkFailed(assert.AnError)
	open := domain.NewRun("c", 2)
	open.MarkAcquiring()

	for _, r := range []*domain.Run{armed, failed, open} {
		require.NoError(t, repo.Create(r))
	}

	stats, err := repo.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Armed)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Acquiring)
}

func TestRunRepository_AbandonUnfinished(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()

	open := domain.NewRun("a", 2)
	open.MarkAcquiring()
	done := domain.NewRun("b", 2)
	done.MarkArmed(1)
	require.NoError(t, repo.Create(open))
	require.NoError(t, repo.Create(done))

	n, err := repo.AbandonUnfinished()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindByID(open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunAbandoned, found.Status)
}
