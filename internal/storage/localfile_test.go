package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCollectionsRoundTrip(t *testing.T) {
	fc := NewFileCollections(t.TempDir())
	ctx := context.Background()

	records := []json.RawMessage{
		json.RawMessage(`{"id":"a","name":"first"}`),
		json.RawMessage(`{"id":"b","name":"second"}`),
	}
	require.NoError(t, fc.WriteAll(ctx, "projects", records))

	got, err := fc.ReadAll(ctx, "projects")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.JSONEq(t, string(records[0]), string(got[0]))
	assert.JSONEq(t, string(records[1]), string(got[1]))
}

func TestFileCollectionsFirstReadCreatesEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCollections(dir)

	got, err := fc.ReadAll(context.Background(), "projects")
	require.NoError(t, err)
	assert.Empty(t, got)

	data, err := os.ReadFile(filepath.Join(dir, "projects.json"))
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestFileCollectionsCorruptedDocumentReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCollections(dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "projects.json"), []byte("{not json"), 0o644))

	got, err := fc.ReadAll(ctx, "projects")
	require.NoError(t, err)
	assert.Empty(t, got)

	// The next write repairs the document.
	require.NoError(t, fc.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)}))
	got, err = fc.ReadAll(ctx, "projects")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileCollectionsWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCollections(dir)

	require.NoError(t, fc.WriteAll(context.Background(), "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file: %s", e.Name())
	}
}

func TestFileCollectionsWriteAllReplacesWholeDocument(t *testing.T) {
	fc := NewFileCollections(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fc.WriteAll(ctx, "projects", []json.RawMessage{
		json.RawMessage(`{"id":"a"}`),
		json.RawMessage(`{"id":"b"}`),
	}))
	require.NoError(t, fc.WriteAll(ctx, "projects", []json.RawMessage{
		json.RawMessage(`{"id":"c"}`),
	}))

	got, err := fc.ReadAll(ctx, "projects")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"id":"c"}`, string(got[0]))
}
