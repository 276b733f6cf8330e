package player

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSongAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/songs/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(songDTO{
			ID:          7,
			Title:       "夜曲",
			Artist:      "周杰伦",
			StreamURL:   "/api/songs/7/stream",
			CoverURL:    "https://cdn.example.com/c/7.jpg",
			DurationSec: 226.5,
		})
	})
	mux.HandleFunc("/api/songs/8", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(songDTO{ID: 8, Title: "no audio"})
	})
	mux.HandleFunc("/api/songs/500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveTrack(t *testing.T) {
	srv := newSongAPI(t)
	r, err := NewHTTPResolver(srv.URL+"/", srv.Client())
	require.NoError(t, err)

	track, err := r.ResolveTrack(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), track.ID)
	assert.Equal(t, "夜曲", track.Title)
	assert.Equal(t, srv.URL+"/api/songs/7/stream", track.StreamURL)
	assert.Equal(t, "https://cdn.example.com/c/7.jpg", track.CoverURL, "absolute URLs are kept")
	assert.Equal(t, 226.5, track.DurationSec)
}

func TestResolveTrackErrors(t *testing.T) {
	srv := newSongAPI(t)
	r, err := NewHTTPResolver(srv.URL, nil)
	require.NoError(t, err)

	_, err = r.ResolveTrack(context.Background(), 404)
	assert.ErrorIs(t, err, ErrTrackNotFound)

	_, err = r.ResolveTrack(context.Background(), 8)
	assert.ErrorIs(t, err, ErrTrackNotFound)

	_, err = r.ResolveTrack(context.Background(), 500)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTrackNotFound)

	_, err = r.ResolveQueue(context.Background(), []int64{7, 404})
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestNewHTTPResolverRejectsRelative(t *testing.T) {
	_, err := NewHTTPResolver("localhost:8080", nil)
	assert.Error(t, err)
	_, err = NewHTTPResolver("/api", nil)
	assert.Error(t, err)
}
