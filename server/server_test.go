package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"Bt1Stream/model"
	"Bt1Stream/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSongs struct {
	songs map[int64]*model.Song
	err   error
}

func (s *stubSongs) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.songs[id], nil
}

func newTestRouter(t *testing.T, songs *stubSongs) (http.Handler, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	store.Put("audio/7.mp3", "", []byte("0123456789"))
	store.Put("covers/7.jpg", "", []byte("JPEGDATA"))
	store.Put("docs/readme.txt", "text/plain", []byte("hello"))
	if songs == nil {
		return NewRouter(NewMediaHandler(store, nil)), store
	}
	return NewRouter(NewMediaHandler(store, songs)), store
}

func do(t *testing.T, h http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func defaultSongs() *stubSongs {
	return &stubSongs{songs: map[int64]*model.Song{
		7: {ID: 7, Title: "夜曲", Album: "十一月的萧邦", Duration: 226.5, StorageKey: "audio/7.mp3",
			CoverURL: "covers/7.jpg", Artist: &model.Artist{ID: 3, Name: "周杰伦"}},
		8: {ID: 8, Title: "no file"},
	}}
}

func TestMediaRouteServesRanges(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	w := do(t, h, http.MethodGet, "/media/docs/readme.txt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	w = do(t, h, http.MethodGet, "/media/audio/7.mp3", map[string]string{"Range": "bytes=2-5"})
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "2345", w.Body.String())
	assert.Equal(t, "bytes 2-5/10", w.Header().Get("Content-Range"))
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))

	w = do(t, h, http.MethodGet, "/media/audio/7.mp3", map[string]string{"Range": "bytes=10-"})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code)
	assert.Equal(t, "bytes */10", w.Header().Get("Content-Range"))

	w = do(t, h, http.MethodGet, "/media/none.mp3", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodHead, "/media/audio/7.mp3", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Empty(t, w.Body.String())
}

func TestCoverRouteFallsBackToJPEG(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	w := do(t, h, http.MethodGet, "/covers/7.jpg", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "JPEGDATA", w.Body.String())
}

func TestSongRoutesAbsentWithoutRepository(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	w := do(t, h, http.MethodGet, "/api/songs/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSong(t *testing.T) {
	h, _ := newTestRouter(t, defaultSongs())

	w := do(t, h, http.MethodGet, "/api/songs/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp SongResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, SongResponse{
		ID:          7,
		Title:       "夜曲",
		Artist:      "周杰伦",
		Album:       "十一月的萧邦",
		StreamURL:   "/api/songs/7/stream",
		CoverURL:    "/covers/7.jpg",
		DurationSec: 226.5,
	}, resp)
	assert.NotContains(t, w.Body.String(), "audio/7.mp3")

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/songs/99", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/songs/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/songs/-1", nil).Code)
}

func TestStreamSong(t *testing.T) {
	h, _ := newTestRouter(t, defaultSongs())

	w := do(t, h, http.MethodGet, "/api/songs/7/stream", map[string]string{"Range": "bytes=6-"})
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "6789", w.Body.String())
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/songs/8/stream", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/songs/99/stream", nil).Code)
}

func TestStreamSongRepositoryFailure(t *testing.T) {
	h, _ := newTestRouter(t, &stubSongs{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/api/songs/7/stream", nil).Code)
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodGet, "/api/songs/7", nil).Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t, defaultSongs())
	w := do(t, h, http.MethodOptions, "/api/songs/7/stream", map[string]string{"Origin": "http://app.local"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Range")
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Range")
}

func TestRequestIDIsKept(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	w := do(t, h, http.MethodGet, "/healthz", map[string]string{requestIDHeader: "abc-123"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	abort := RecoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		abort.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAbortedStreamCutsConnection(t *testing.T) {
	store := storage.NewMemoryStore()
	store.Put("audio/big.mp3", "audio/mpeg", make([]byte, 1<<20))
	srv := httptest.NewServer(NewRouter(NewMediaHandler(&truncatingStore{MemoryStore: store, limit: 64 * 1024}, nil)))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/media/audio/big.mp3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = io.ReadAll(resp.Body)
	assert.Error(t, err, "a short body must not look complete")
}

// truncatingStore returns bodies that end after limit bytes.
type truncatingStore struct {
	*storage.MemoryStore
	limit int64
}

func (s *truncatingStore) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.MemoryStore.GetObject(ctx, key)
	if err != nil {
		return nil, err
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(rc, s.limit), rc}, nil
}

func TestCoverURL(t *testing.T) {
	assert.Equal(t, "", coverURL(""))
	assert.Equal(t, "/covers/a.jpg", coverURL("covers/a.jpg"))
	assert.Equal(t, "/covers/a.jpg", coverURL("a.jpg"))
	assert.Equal(t, "https://cdn/x.jpg", coverURL("https://cdn/x.jpg"))
	assert.Equal(t, "/static/x.jpg", coverURL("/static/x.jpg"))
}
