// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package dump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/ManuGH/updatesink/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplace_OverwritesPreviousArtifact(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "post.dat")
	d := New(path, sink.AccessPolicy{Group: strconv.Itoa(os.Getegid())})

	require.NoError(t, d.Replace(ctx, []byte("first body, much longer than the second")))
	require.NoError(t, d.Replace(ctx, []byte("not {json}")))

	got, ok, err := d.Read(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "not {json}", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, sink.DefaultMode, info.Mode().Perm())
}

func TestReplace_EmptyBody(t *testing.T) {
	ctx := context.Background()
	d := New(filepath.Join(t.TempDir(), "post.dat"), sink.AccessPolicy{})

	require.NoError(t, d.Replace(ctx, nil))
	got, ok, err := d.Read(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestRead_Missing(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "post.dat"), sink.AccessPolicy{})
	_, ok, err := d.Read(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReplace_MissingDirectoryIsStorageError(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "nope", "post.dat"), sink.AccessPolicy{})
	err := d.Replace(context.Background(), []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, sink.ErrStorage))
}

func TestReplace_UnknownGroupIsPolicyError(t *testing.T) {
	d := New(filepath.Join(t.TempDir(), "post.dat"), sink.AccessPolicy{Group: "no-such-group-updatesink"})
	err := d.Replace(context.Background(), []byte("x"))
	require.Error(t, err)

	var se *sink.StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, sink.OpPolicy, se.Op)
}
