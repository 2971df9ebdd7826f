package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/maneesh/labarchive/internal/models"
	"github.com/maneesh/labarchive/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ProjectHandler serves project CRUD requests.
type ProjectHandler struct {
	repo *repository.ProjectRepository
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(repo *repository.ProjectRepository) *ProjectHandler {
	return &ProjectHandler{repo: repo}
}

type createProjectRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	ModuleName     string `json:"moduleName"`
	SupervisorName string `json:"supervisorName"`
}

// List handles GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_projects",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	projects, err := h.repo.List(ctx)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	span.SetAttributes(attribute.Int("project_count", len(projects)))
	writeJSON(w, http.StatusOK, projects)
}

// Get handles GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "get_project",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("project_id", id))

	project, err := h.repo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Create handles POST /api/projects (admin only)
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "create_project",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	project, err := h.repo.Create(ctx, models.Project{
		Name:           req.Name,
		Description:    req.Description,
		ModuleName:     req.ModuleName,
		SupervisorName: req.SupervisorName,
	})
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	span.SetAttributes(attribute.String("project_id", project.ID))
	log.Printf("Project created: %s (ID: %s)", project.Name, project.ID)
	writeJSON(w, http.StatusCreated, project)
}

// Update handles PUT /api/projects/{id} (admin only)
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "update_project",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("project_id", id))

	var update models.ProjectUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	project, err := h.repo.Update(ctx, id, update)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/{id} (admin only)
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "delete_project",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	id := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("project_id", id))

	if err := h.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}
	log.Printf("Project deleted: %s", id)
	w.WriteHeader(http.StatusNoContent)
}
