package audio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"Bt1Stream/core/player"
	"Bt1Stream/core/stream"
	"Bt1Stream/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	next     http.Handler
	requests atomic.Int32
}

func (c *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.requests.Add(1)
	c.next.ServeHTTP(w, r)
}

func newMediaServer(t *testing.T, objects map[string][]byte) (*httptest.Server, *countingHandler) {
	t.Helper()
	store := storage.NewMemoryStore()
	for k, v := range objects {
		store.Put(k, "audio/mpeg", v)
	}
	responder := stream.NewResponder(store)
	h := &countingHandler{next: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		responder.ServeKey(w, r, strings.TrimPrefix(r.URL.Path, "/media/"))
	})}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, h
}

func TestRangeReaderReadsWholeObject(t *testing.T) {
	data := []byte(strings.Repeat("0123456789", 1000))
	srv, h := newMediaServer(t, map[string][]byte{"a.mp3": data})

	r, err := OpenRangeReader(context.Background(), srv.Client(), srv.URL+"/media/a.mp3")
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, int64(len(data)), r.Size())
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int32(1), h.requests.Load())
}

func TestRangeReaderSeek(t *testing.T) {
	data := []byte(strings.Repeat("abcdefghij", 100))
	srv, h := newMediaServer(t, map[string][]byte{"a.mp3": data})

	r, err := OpenRangeReader(context.Background(), srv.Client(), srv.URL+"/media/a.mp3")
	require.NoError(t, err)
	defer r.Close()

	pos, err := r.Seek(995, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(995), pos)
	tail, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "fghij", string(tail))

	pos, err = r.Seek(-10, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(990), pos)
	buf := make([]byte, 3)
	_, err = io.ReadFull(r, buf)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(buf))

	pos, err = r.Seek(2, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(995), pos)

	_, err = r.Seek(-1, io.SeekStart)
	assert.Error(t, err)

	// one request to open plus one per seek that was followed by a read
	assert.Equal(t, int32(3), h.requests.Load())

	_, err = r.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	n, err := r.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, int32(3), h.requests.Load(), "reading at the end needs no request")
}

func TestRangeReaderZeroLengthObject(t *testing.T) {
	srv, _ := newMediaServer(t, map[string][]byte{"empty.mp3": {}})

	r, err := OpenRangeReader(context.Background(), srv.Client(), srv.URL+"/media/empty.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(0), r.Size())
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRangeReaderMissingObject(t *testing.T) {
	srv, _ := newMediaServer(t, nil)

	_, err := OpenRangeReader(context.Background(), srv.Client(), srv.URL+"/media/none.mp3")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.ErrorIs(t, err, player.ErrSourceNotFound)
}

func TestRangeReaderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := OpenRangeReader(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, player.ErrSourceNotFound)
}

func TestRangeReaderIgnoredRangeOnSeek(t *testing.T) {
	data := []byte("plain server without range support")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	r, err := OpenRangeReader(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Seek(6, io.SeekStart)
	require.NoError(t, err)
	_, err = r.Read(make([]byte, 4))
	assert.ErrorContains(t, err, "ignored range")
}

func TestParseContentRange(t *testing.T) {
	start, total, err := parseContentRange("bytes 100-199/1000")
	require.NoError(t, err)
	assert.Equal(t, int64(100), start)
	assert.Equal(t, int64(1000), total)

	start, total, err = parseContentRange("bytes */42")
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(42), total)

	for _, bad := range []string{"", "items 0-1/2", "bytes 0-1", "bytes x-1/2", "bytes 0-1/*"} {
		_, _, err := parseContentRange(bad)
		assert.Error(t, err, bad)
	}
}
