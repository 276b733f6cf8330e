package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"Bt1Stream/logger"
	"Bt1Stream/model"
)

// SongResponse 是播放器解析曲目时读取的元数据
type SongResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	StreamURL   string  `json:"streamUrl"`
	CoverURL    string  `json:"coverUrl,omitempty"`
	DurationSec float64 `json:"durationSec"`
}

func newSongResponse(s *model.Song) SongResponse {
	return SongResponse{
		ID:          s.ID,
		Title:       s.Title,
		Artist:      s.ArtistName(),
		Album:       s.Album,
		StreamURL:   fmt.Sprintf("/api/songs/%d/stream", s.ID),
		CoverURL:    coverURL(s.CoverURL),
		DurationSec: s.Duration,
	}
}

// coverURL keeps absolute URLs and maps store keys under covers/ onto the cover route.
func coverURL(ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "/"):
		return ref
	}
	return "/covers/" + strings.TrimPrefix(ref, "covers/")
}

// GetSong GET /api/songs/{id}
func (h *MediaHandler) GetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := songID(w, r)
	if !ok {
		return
	}
	song, err := h.songs.GetSongByID(r.Context(), id)
	if err != nil {
		logger.Error("查询歌曲失败", logger.Int64("songId", id), logger.ErrorField(err))
		http.Error(w, "Failed to load song", http.StatusInternalServerError)
		return
	}
	if song == nil {
		http.Error(w, "Song not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newSongResponse(song))
}

// Health GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入JSON响应失败", logger.ErrorField(err))
	}
}
