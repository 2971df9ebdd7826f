package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maneesh/labarchive/internal/models"
	"github.com/maneesh/labarchive/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances one second per reading so updatedAt is strictly
// ordered without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type testRepos struct {
	projects   *ProjectRepository
	files      *FileRepository
	uploadsDir string
}

// setupTestRepos wires repositories against a local-only environment
// (no remote credentials, not managed).
func setupTestRepos(t *testing.T) testRepos {
	tmp := t.TempDir()
	detector := storage.NewDetector(func(string) string { return "" })
	collections := storage.NewCollections(detector, filepath.Join(tmp, "collections"))

	uploadsDir := filepath.Join(tmp, "uploads")
	blobs := storage.NewBlobs(detector, uploadsDir)

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	files := NewFileRepository(collections, blobs)
	files.now = clock.Now

	projects := NewProjectRepository(collections, files)
	projects.now = clock.Now

	return testRepos{projects: projects, files: files, uploadsDir: uploadsDir}
}

func TestProjectCreate(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{Name: "Thesis"})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Thesis", created.Name)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

	projects, err := repos.projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, created, projects[0])
}

func TestProjectCreateTrimsAndValidatesName(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{Name: "  Thesis  "})
	require.NoError(t, err)
	assert.Equal(t, "Thesis", created.Name)

	_, err = repos.projects.Create(ctx, models.Project{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProjectUpdate(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{
		Name:           "Thesis",
		Description:    "original",
		SupervisorName: "Dr. Rao",
	})
	require.NoError(t, err)

	name := "Thesis v2"
	updated, err := repos.projects.Update(ctx, created.ID, models.ProjectUpdate{Name: &name})
	require.NoError(t, err)

	assert.Equal(t, "Thesis v2", updated.Name)
	assert.Equal(t, "original", updated.Description)
	assert.Equal(t, "Dr. Rao", updated.SupervisorName)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestProjectUpdatedAtMonotonic(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{Name: "Thesis"})
	require.NoError(t, err)

	prev := created.UpdatedAt
	for _, name := range []string{"v2", "v3", "v4"} {
		n := name
		updated, err := repos.projects.Update(ctx, created.ID, models.ProjectUpdate{Name: &n})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(prev))
		prev = updated.UpdatedAt
	}
}

func TestProjectUpdateNotFound(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{Name: "Thesis"})
	require.NoError(t, err)

	name := "changed"
	_, err = repos.projects.Update(ctx, "no-such-id", models.ProjectUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	// The collection is unchanged.
	projects, err := repos.projects.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, created, projects[0])
}

func TestProjectGetByID(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{Name: "Thesis"})
	require.NoError(t, err)

	got, err := repos.projects.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = repos.projects.GetByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectDeleteCascadesToFiles(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	created, err := repos.projects.Create(ctx, models.Project{Name: "Thesis"})
	require.NoError(t, err)

	meta, err := repos.files.SaveContent(ctx, models.FileMetadata{
		ProjectID:    created.ID,
		CategoryID:   "report",
		Filename:     "thesis.pdf",
		OriginalName: "My Thesis.pdf",
		MimeType:     "application/pdf",
	}, []byte("pdf bytes"))
	require.NoError(t, err)

	require.NoError(t, repos.projects.Delete(ctx, created.ID))

	_, err = repos.projects.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	files, err := repos.files.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	blobFile := filepath.Join(repos.uploadsDir, meta.ProjectID, meta.CategoryID, meta.Filename)
	_, statErr := os.Stat(blobFile)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestProjectDeleteNotFound(t *testing.T) {
	repos := setupTestRepos(t)

	err := repos.projects.Delete(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
