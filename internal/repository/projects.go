package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maneesh/labarchive/internal/models"
	"github.com/maneesh/labarchive/internal/storage"
)

// ProjectRepository holds the project collection. Every mutation reads
// the full collection, changes it in memory and writes it back whole;
// two concurrent mutations race and the later write wins over the
// entire collection. That is an accepted limit of the whole-document
// contract, not something this layer papers over.
type ProjectRepository struct {
	collections *storage.Collections
	files       *FileRepository // cascade target, may be nil

	now   func() time.Time
	newID func() string
}

// NewProjectRepository creates the repository. files receives the
// cascade when a project is deleted; pass nil to disable cascading.
func NewProjectRepository(collections *storage.Collections, files *FileRepository) *ProjectRepository {
	return &ProjectRepository{
		collections: collections,
		files:       files,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// List returns all projects.
func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	return r.load(ctx)
}

// GetByID returns the project or ErrNotFound.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (models.Project, error) {
	projects, err := r.load(ctx)
	if err != nil {
		return models.Project{}, err
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Project{}, ErrNotFound
}

// Create stores a new project with a fresh ID and equal created/updated
// timestamps. The name must be non-empty after trimming.
func (r *ProjectRepository) Create(ctx context.Context, p models.Project) (models.Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return models.Project{}, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}

	now := r.now().UTC()
	p.ID = r.newID()
	p.CreatedAt = now
	p.UpdatedAt = now

	projects, err := r.load(ctx)
	if err != nil {
		return models.Project{}, err
	}
	projects = append(projects, p)
	if err := r.store(ctx, projects); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Update applies the non-nil fields and refreshes UpdatedAt. Returns
// ErrNotFound when the ID matches no record; the collection is left
// unchanged in that case.
func (r *ProjectRepository) Update(ctx context.Context, id string, update models.ProjectUpdate) (models.Project, error) {
	projects, err := r.load(ctx)
	if err != nil {
		return models.Project{}, err
	}

	idx := -1
	for i := range projects {
		if projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Project{}, ErrNotFound
	}

	p := projects[idx]
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Project{}, fmt.Errorf("%w: project name is required", ErrInvalidInput)
		}
		p.Name = name
	}
	if update.Description != nil {
		p.Description = *update.Description
	}
	if update.ModuleName != nil {
		p.ModuleName = *update.ModuleName
	}
	if update.SupervisorName != nil {
		p.SupervisorName = *update.SupervisorName
	}
	p.UpdatedAt = r.now().UTC()

	projects[idx] = p
	if err := r.store(ctx, projects); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Delete removes the project and cascades to its file metadata and
// content. Returns ErrNotFound when the ID matches no record.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	projects, err := r.load(ctx)
	if err != nil {
		return err
	}

	idx := -1
	for i := range projects {
		if projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}

	if r.files != nil {
		if err := r.files.DeleteByProject(ctx, id); err != nil {
			return fmt.Errorf("failed to cascade file deletion: %w", err)
		}
	}

	projects = append(projects[:idx], projects[idx+1:]...)
	return r.store(ctx, projects)
}

func (r *ProjectRepository) load(ctx context.Context) ([]models.Project, error) {
	raw, _, err := r.collections.ReadAll(ctx, storage.ProjectsCollection)
	if err != nil {
		return nil, err
	}
	projects := make([]models.Project, 0, len(raw))
	for _, rec := range raw {
		var p models.Project
		if err := json.Unmarshal(rec, &p); err != nil {
			return nil, fmt.Errorf("failed to decode project record: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func (r *ProjectRepository) store(ctx context.Context, projects []models.Project) error {
	raw := make([]json.RawMessage, 0, len(projects))
	for _, p := range projects {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to encode project record: %w", err)
		}
		raw = append(raw, data)
	}
	_, err := r.collections.WriteAll(ctx, storage.ProjectsCollection, raw)
	return err
}
