package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/maneesh/labarchive/internal/models"
	"github.com/maneesh/labarchive/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// maxUploadBytes bounds multipart uploads (32 MB).
const maxUploadBytes = 32 << 20

// FileHandler serves file upload, listing, download and delete
// requests.
type FileHandler struct {
	files    *repository.FileRepository
	projects *repository.ProjectRepository
}

// NewFileHandler creates a new file handler
func NewFileHandler(files *repository.FileRepository, projects *repository.ProjectRepository) *FileHandler {
	return &FileHandler{files: files, projects: projects}
}

// ListByProject handles GET /api/projects/{id}/files with an optional
// ?category= filter.
func (h *FileHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "list_files",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	projectID := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("project_id", projectID))

	files, err := h.files.ListByProject(ctx, projectID)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if category := r.URL.Query().Get("category"); category != "" {
		filtered := make([]models.FileMetadata, 0, len(files))
		for _, f := range files {
			if f.CategoryID == category {
				filtered = append(filtered, f)
			}
		}
		files = filtered
	}

	span.SetAttributes(attribute.Int("file_count", len(files)))
	writeJSON(w, http.StatusOK, files)
}

// Upload handles POST /api/projects/{id}/files (admin only). The
// request is multipart with a "file" part and a "category" form value.
// The stored filename is randomized; the original name is kept on the
// record for display.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "upload_file",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	projectID := mux.Vars(r)["id"]
	span.SetAttributes(attribute.String("project_id", projectID))

	if _, err := h.projects.GetByID(ctx, projectID); err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart request", http.StatusBadRequest)
		return
	}
	categoryID := r.FormValue("category")
	if categoryID == "" {
		http.Error(w, "missing 'category' form value", http.StatusBadRequest)
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing 'file' part", http.StatusBadRequest)
		return
	}
	defer part.Close()

	content, err := io.ReadAll(part)
	if err != nil {
		span.RecordError(err)
		http.Error(w, fmt.Sprintf("failed to read upload: %v", err), http.StatusBadRequest)
		return
	}

	filename := uuid.New().String() + filepath.Ext(header.Filename)
	span.SetAttributes(
		attribute.String("category_id", categoryID),
		attribute.String("filename", filename),
		attribute.Int("size_bytes", len(content)),
	)

	meta, err := h.files.SaveContent(ctx, models.FileMetadata{
		ProjectID:    projectID,
		CategoryID:   categoryID,
		Filename:     filename,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
	}, content)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	log.Printf("File uploaded: %s -> %s/%s/%s", header.Filename, projectID, categoryID, filename)
	writeJSON(w, http.StatusCreated, meta)
}

// Download handles GET /files/{projectId}/{categoryId}/{filename}.
// Records with a remote locator redirect to the object URL; local
// records are served from disk.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "download_file",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	vars := mux.Vars(r)
	projectID, categoryID, filename := vars["projectId"], vars["categoryId"], vars["filename"]
	span.SetAttributes(
		attribute.String("project_id", projectID),
		attribute.String("category_id", categoryID),
		attribute.String("filename", filename),
	)

	meta, err := h.files.GetByPath(ctx, projectID, categoryID, filename)
	if err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	if meta.BlobURL != "" {
		http.Redirect(w, r, meta.BlobURL, http.StatusFound)
		return
	}

	content, err := h.files.OpenContent(ctx, meta)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "file content missing", http.StatusNotFound)
			return
		}
		writeError(w, err)
		return
	}

	if meta.MimeType != "" {
		w.Header().Set("Content-Type", meta.MimeType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", meta.OriginalName))
	w.Write(content)
}

// Delete handles DELETE /api/projects/{projectId}/files/{categoryId}/{filename}
// (admin only).
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "delete_file",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	vars := mux.Vars(r)
	projectID, categoryID, filename := vars["projectId"], vars["categoryId"], vars["filename"]
	span.SetAttributes(
		attribute.String("project_id", projectID),
		attribute.String("category_id", categoryID),
		attribute.String("filename", filename),
	)

	if err := h.files.DeleteContent(ctx, projectID, categoryID, filename); err != nil {
		span.RecordError(err)
		writeError(w, err)
		return
	}

	log.Printf("File deleted: %s/%s/%s", projectID, categoryID, filename)
	w.WriteHeader(http.StatusNoContent)
}
