package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionsManagedWithoutCredentialsFailsHard(t *testing.T) {
	dir := t.TempDir()
	detector := NewDetector(lookupFrom(map[string]string{EnvManagedPlatform: "true"}))
	c := NewCollections(detector, dir)
	ctx := context.Background()

	_, _, err := c.ReadAll(ctx, "projects")
	assert.True(t, errors.Is(err, ErrConfigurationMissing))

	_, err = c.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)})
	assert.True(t, errors.Is(err, ErrConfigurationMissing))

	// No local fallback document may appear on a managed platform.
	entries, err := os.ReadDir(dir)
	if err == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, errors.Is(err, os.ErrNotExist))
	}
}

func TestCollectionsManagedRemoteFailureDoesNotFallBack(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	dir := t.TempDir()
	detector := NewDetector(lookupFrom(map[string]string{
		EnvManagedPlatform: "true",
		EnvKVURL:           "redis://" + addr,
		EnvKVToken:         "secret",
	}))
	c := NewCollections(detector, dir)

	_, err = c.WriteAll(context.Background(), "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)})
	assert.True(t, errors.Is(err, ErrBackendUnavailable))

	entries, readErr := os.ReadDir(dir)
	if readErr == nil {
		assert.Empty(t, entries)
	}
}

func TestCollectionsPrefersRemoteWhenAvailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	mr.RequireAuth("secret")

	detector := NewDetector(lookupFrom(map[string]string{
		EnvKVURL:   "redis://" + mr.Addr(),
		EnvKVToken: "secret",
	}))
	c := NewCollections(detector, t.TempDir())
	ctx := context.Background()

	backend, err := c.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)})
	require.NoError(t, err)
	assert.Equal(t, BackendRemoteKV, backend)

	got, backend, err := c.ReadAll(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, BackendRemoteKV, backend)
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"id":"a"}`, string(got[0]))
}

func TestCollectionsWithoutCredentialsUsesLocalFile(t *testing.T) {
	c := NewCollections(NewDetector(lookupFrom(map[string]string{})), t.TempDir())
	ctx := context.Background()

	backend, err := c.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)})
	require.NoError(t, err)
	assert.Equal(t, BackendLocalFile, backend)

	got, backend, err := c.ReadAll(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, BackendLocalFile, backend)
	assert.Len(t, got, 1)
}

func TestCollectionsFallsBackPerCall(t *testing.T) {
	// A dead remote falls back to the local file on a general-purpose
	// host. Once the remote recovers, the next call goes back to it and
	// does not see the fallback write: last-writer-wins per backend, a
	// documented divergence rather than hidden consistency.
	down, err := miniredis.Run()
	require.NoError(t, err)
	deadAddr := down.Addr()
	down.Close()

	env := map[string]string{
		EnvKVURL:   "redis://" + deadAddr,
		EnvKVToken: "secret",
	}
	c := NewCollections(NewDetector(lookupFrom(env)), t.TempDir())
	ctx := context.Background()

	backend, err := c.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"local"}`)})
	require.NoError(t, err)
	assert.Equal(t, BackendLocalFile, backend)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	mr.RequireAuth("secret")
	env[EnvKVURL] = "redis://" + mr.Addr()

	got, backend, err := c.ReadAll(ctx, "projects")
	require.NoError(t, err)
	assert.Equal(t, BackendRemoteKV, backend)
	assert.Empty(t, got)
}

func TestCollectionsRebuildsClientOnCredentialChange(t *testing.T) {
	first, err := miniredis.Run()
	require.NoError(t, err)
	defer first.Close()
	first.RequireAuth("one")

	second, err := miniredis.Run()
	require.NoError(t, err)
	defer second.Close()
	second.RequireAuth("two")

	env := map[string]string{
		EnvKVURL:   "redis://" + first.Addr(),
		EnvKVToken: "one",
	}
	c := NewCollections(NewDetector(lookupFrom(env)), t.TempDir())
	ctx := context.Background()

	backend, err := c.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"a"}`)})
	require.NoError(t, err)
	require.Equal(t, BackendRemoteKV, backend)

	env[EnvKVURL] = "redis://" + second.Addr()
	env[EnvKVToken] = "two"

	backend, err = c.WriteAll(ctx, "projects", []json.RawMessage{json.RawMessage(`{"id":"b"}`)})
	require.NoError(t, err)
	require.Equal(t, BackendRemoteKV, backend)

	stored, err := second.Get("projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"b"}]`, stored)
}
