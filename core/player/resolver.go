package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPResolver 通过服务端 /api/songs/{id} 接口把歌曲ID解析为 Track
type HTTPResolver struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewHTTPResolver 创建解析器，baseURL 形如 http://127.0.0.1:8080
func NewHTTPResolver(baseURL string, client *http.Client) (*HTTPResolver, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("解析服务地址失败: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("服务地址必须是绝对URL: %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPResolver{baseURL: u, httpClient: client}, nil
}

type songDTO struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Artist      string  `json:"artist"`
	Album       string  `json:"album"`
	StreamURL   string  `json:"streamUrl"`
	CoverURL    string  `json:"coverUrl"`
	DurationSec float64 `json:"durationSec"`
}

// ResolveTrack fetches the song and returns it with absolute stream and cover URLs.
func (r *HTTPResolver) ResolveTrack(ctx context.Context, id int64) (Track, error) {
	endpoint := r.baseURL.JoinPath("api", "songs", fmt.Sprint(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Track{}, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Track{}, fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Track{}, fmt.Errorf("song %d: %w", id, ErrTrackNotFound)
	case resp.StatusCode != http.StatusOK:
		return Track{}, fmt.Errorf("API返回错误状态码: %d", resp.StatusCode)
	}

	var dto songDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return Track{}, fmt.Errorf("解析响应失败: %w", err)
	}
	if dto.StreamURL == "" {
		return Track{}, fmt.Errorf("song %d has no stream url: %w", id, ErrTrackNotFound)
	}

	return Track{
		ID:          dto.ID,
		Title:       dto.Title,
		Artist:      dto.Artist,
		StreamURL:   r.absolute(dto.StreamURL),
		CoverURL:    r.absolute(dto.CoverURL),
		DurationSec: dto.DurationSec,
	}, nil
}

// ResolveQueue resolves ids in order, failing on the first error.
func (r *HTTPResolver) ResolveQueue(ctx context.Context, ids []int64) ([]Track, error) {
	out := make([]Track, 0, len(ids))
	for _, id := range ids {
		t, err := r.ResolveTrack(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *HTTPResolver) absolute(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return r.baseURL.ResolveReference(u).String()
}
