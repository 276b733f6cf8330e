package server

import (
	"net/http"
	"strconv"

	"Bt1Stream/core/stream"
	"Bt1Stream/logger"
	"Bt1Stream/repository"

	"github.com/gorilla/mux"
)

// MediaHandler serves stored objects by key and songs by id through the range responder.
type MediaHandler struct {
	media  *stream.Responder
	audio  *stream.Responder
	covers *stream.Responder
	songs  repository.SongRepository
}

// NewMediaHandler 创建媒体处理器。songs 为 nil 时歌曲路由不可用。
func NewMediaHandler(store stream.ObjectStore, songs repository.SongRepository, opts ...stream.Option) *MediaHandler {
	withType := func(ct string) []stream.Option {
		return append(append([]stream.Option{}, opts...), stream.WithFallbackContentType(ct))
	}
	return &MediaHandler{
		media:  stream.NewResponder(store, opts...),
		audio:  stream.NewResponder(store, withType("audio/mpeg")...),
		covers: stream.NewResponder(store, withType("image/jpeg")...),
		songs:  songs,
	}
}

// ServeMedia GET|HEAD /media/{key}
func (h *MediaHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	h.media.ServeKey(w, r, mux.Vars(r)["key"])
}

// ServeCover GET|HEAD /covers/{key}
func (h *MediaHandler) ServeCover(w http.ResponseWriter, r *http.Request) {
	h.covers.ServeKey(w, r, "covers/"+mux.Vars(r)["key"])
}

// StreamSong GET|HEAD /api/songs/{id}/stream
func (h *MediaHandler) StreamSong(w http.ResponseWriter, r *http.Request) {
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
	if song == nil || song.StorageKey == "" {
		http.Error(w, "Song not found", http.StatusNotFound)
		return
	}
	h.audio.ServeKey(w, r, song.StorageKey)
}

func songID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid song ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
