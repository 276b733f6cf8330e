package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Put("audio/b.mp3", "audio/mpeg", []byte("0123456789"))
	s.Put("covers/b.jpg", "image/jpeg", []byte("jpg"))

	info, err := s.StatObject(ctx, "audio/b.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(10), info.Size)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	rc, err := s.GetObjectRange(ctx, "audio/b.mp3", 3, 4)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "3456", string(got))

	_, err = s.GetObjectRange(ctx, "audio/b.mp3", 8, 4)
	assert.Error(t, err)

	list, err := s.ListObjects(ctx, "audio/")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "audio/b.mp3", list[0].Key)
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.StatObject(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	s.Put("gone", "", []byte("x"))
	s.Delete("gone")
	_, err = s.GetObject(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.5 KB", FormatSize(1536))
	assert.Equal(t, "3.0 MB", FormatSize(3*1024*1024))
}
