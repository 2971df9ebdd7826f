package models

import "time"

// Project represents a showcased student project. Timestamps are
// marshalled as RFC 3339, which sorts lexicographically.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	ModuleName     string    `json:"moduleName,omitempty"`
	SupervisorName string    `json:"supervisorName,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProjectUpdate carries a partial update. Nil fields leave the stored
// value untouched.
type ProjectUpdate struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	ModuleName     *string `json:"moduleName,omitempty"`
	SupervisorName *string `json:"supervisorName,omitempty"`
}

// FileMetadata describes one uploaded file. Filename is the
// storage-internal (possibly randomized) name; OriginalName is what
// the uploader called it. The triple (ProjectID, CategoryID, Filename)
// is unique within the collection and is the download/delete key.
//
// BlobURL is set when the content lives in the remote object store.
// When empty, the content is on local disk at a path derived from the
// same triple.
type FileMetadata struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"projectId"`
	CategoryID   string    `json:"categoryId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
	BlobURL      string    `json:"blobUrl,omitempty"`
}
