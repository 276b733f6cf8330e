package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"Bt1Stream/core/player"
)

// StatusError is an unexpected HTTP status from the media endpoint.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == player.ErrSourceNotFound &&
		(e.Code == http.StatusNotFound || e.Code == http.StatusGone)
}

// RangeReader reads a remote object through HTTP Range requests. Seeking drops the
// open body; the next Read re-requests from the new offset.
type RangeReader struct {
	ctx    context.Context
	client *http.Client
	url    string

	size   int64 // -1 when the server did not say
	offset int64
	body   io.ReadCloser
}

// OpenRangeReader issues the first request so a missing or unreadable source fails here
// instead of on the first Read.
func OpenRangeReader(ctx context.Context, client *http.Client, url string) (*RangeReader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	r := &RangeReader{ctx: ctx, client: client, url: url, size: -1}
	if err := r.open(0); err != nil {
		return nil, err
	}
	return r, nil
}

// Size returns the object size, or -1 if unknown.
func (r *RangeReader) Size() int64 { return r.size }

func (r *RangeReader) open(off int64) error {
	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", off))

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		start, total, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil || start != off {
			resp.Body.Close()
			return fmt.Errorf("GET %s: bad Content-Range %q", r.url, resp.Header.Get("Content-Range"))
		}
		r.size = total
		r.body = resp.Body

	case http.StatusOK:
		if off != 0 {
			resp.Body.Close()
			return fmt.Errorf("GET %s: server ignored range request", r.url)
		}
		r.size = resp.ContentLength
		r.body = resp.Body

	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		// bytes */N: off is at or past the end
		_, total, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil || off < total {
			return &StatusError{URL: r.url, Code: resp.StatusCode}
		}
		r.size = total
		r.body = nil

	default:
		resp.Body.Close()
		return &StatusError{URL: r.url, Code: resp.StatusCode}
	}
	return nil
}

func (r *RangeReader) Read(p []byte) (int, error) {
	if r.size >= 0 && r.offset >= r.size {
		return 0, io.EOF
	}
	if r.body == nil {
		if err := r.open(r.offset); err != nil {
			return 0, err
		}
		if r.body == nil {
			return 0, io.EOF
		}
	}
	n, err := r.body.Read(p)
	r.offset += int64(n)
	if errors.Is(err, io.EOF) && r.size >= 0 && r.offset < r.size {
		return n, io.ErrUnexpectedEOF
	}
	return n, err
}

func (r *RangeReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		if r.size < 0 {
			return 0, errors.New("seek from end: size unknown")
		}
		abs = r.size + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	if abs != r.offset && r.body != nil {
		r.body.Close()
		r.body = nil
	}
	r.offset = abs
	return abs, nil
}

func (r *RangeReader) Close() error {
	if r.body == nil {
		return nil
	}
	err := r.body.Close()
	r.body = nil
	return err
}

// parseContentRange reads "bytes start-end/total" and "bytes */total".
func parseContentRange(v string) (start, total int64, err error) {
	unit, rest, ok := strings.Cut(strings.TrimSpace(v), " ")
	if !ok || !strings.EqualFold(unit, "bytes") {
		return 0, 0, fmt.Errorf("content-range %q", v)
	}
	span, size, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, fmt.Errorf("content-range %q", v)
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("content-range %q: %w", v, err)
	}
	if span == "*" {
		return 0, total, nil
	}
	first, _, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, fmt.Errorf("content-range %q", v)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("content-range %q: %w", v, err)
	}
	return start, total, nil
}
