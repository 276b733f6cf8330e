package stream

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Response describes the framing of one served object, full or partial.
type Response struct {
	Status       int
	Partial      bool
	Start        int64 // partial only
	End          int64 // partial only, inclusive
	Size         int64 // total object size
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ContentLength is the exact number of body bytes the response carries.
func (r *Response) ContentLength() int64 {
	if r.Partial {
		return r.End - r.Start + 1
	}
	return r.Size
}

// ContentRange returns the Content-Range value, empty for full responses.
func (r *Response) ContentRange() string {
	if !r.Partial {
		return ""
	}
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, r.Size)
}

func (r *Response) writeHeaders(h http.Header, cacheControl string) {
	h.Set("Content-Type", r.ContentType)
	h.Set("Content-Length", strconv.FormatInt(r.ContentLength(), 10))
	h.Set("Accept-Ranges", "bytes")
	if cr := r.ContentRange(); cr != "" {
		h.Set("Content-Range", cr)
	}
	if r.ETag != "" {
		h.Set("ETag", strconv.Quote(r.ETag))
	}
	if !r.LastModified.IsZero() {
		h.Set("Last-Modified", r.LastModified.UTC().Format(http.TimeFormat))
	}
	if cacheControl != "" {
		h.Set("Cache-Control", cacheControl)
	}
}
