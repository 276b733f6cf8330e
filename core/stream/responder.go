package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"Bt1Stream/logger"
	"Bt1Stream/storage"
)

// ObjectStore is the read side of the object store the responder needs.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	StatObject(ctx context.Context, key string) (storage.ObjectInfo, error)
	GetObject(ctx context.Context, key string) (io.ReadCloser, error)
	GetObjectRange(ctx context.Context, key string, start, length int64) (io.ReadCloser, error)
}

// Responder serves stored objects with byte-range support. It holds no per-request
// state; one instance serves any number of concurrent requests.
type Responder struct {
	store        ObjectStore
	fallbackType string
	cacheControl string
	statTimeout  time.Duration
}

type Option func(*Responder)

// WithFallbackContentType sets the type used when the store has none recorded.
func WithFallbackContentType(ct string) Option {
	return func(r *Responder) { r.fallbackType = ct }
}

func WithCacheControl(v string) Option {
	return func(r *Responder) { r.cacheControl = v }
}

// WithStatTimeout bounds the metadata lookup. The body stream itself is bounded only
// by the caller's context.
func WithStatTimeout(d time.Duration) Option {
	return func(r *Responder) { r.statTimeout = d }
}

func NewResponder(store ObjectStore, opts ...Option) *Responder {
	r := &Responder{
		store:        store,
		fallbackType: "application/octet-stream",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up the object and computes the response framing without opening a body.
func (r *Responder) Resolve(ctx context.Context, key, rangeHeader string) (*Response, error) {
	if key == "" {
		return nil, fmt.Errorf("empty object key: %w", ErrNotFound)
	}

	statCtx := ctx
	if r.statTimeout > 0 {
		var cancel context.CancelFunc
		statCtx, cancel = context.WithTimeout(ctx, r.statTimeout)
		defer cancel()
	}
	info, err := r.store.StatObject(statCtx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return nil, &StorageError{Op: "stat", Key: key, Err: err}
	}

	resp := &Response{
		Status:       http.StatusOK,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}
	if resp.ContentType == "" {
		resp.ContentType = r.fallbackType
	}
	if rangeHeader == "" {
		return resp, nil
	}

	req, err := ParseRange(rangeHeader)
	if err != nil {
		return nil, &RangeError{Header: rangeHeader, Size: info.Size, Reason: err.Error()}
	}
	start, end, ok := req.Resolve(info.Size)
	if !ok {
		return nil, &RangeError{Header: rangeHeader, Size: info.Size, Reason: "out of bounds"}
	}
	resp.Status = http.StatusPartialContent
	resp.Partial = true
	resp.Start = start
	resp.End = end
	return resp, nil
}

// Serve resolves the object and opens a body that yields exactly resp.ContentLength()
// bytes, or fails with a *StorageError. The caller closes the body.
func (r *Responder) Serve(ctx context.Context, key, rangeHeader string) (*Response, io.ReadCloser, error) {
	resp, err := r.Resolve(ctx, key, rangeHeader)
	if err != nil {
		return nil, nil, err
	}
	if resp.ContentLength() == 0 {
		return resp, http.NoBody, nil
	}

	var rc io.ReadCloser
	if resp.Partial {
		rc, err = r.store.GetObjectRange(ctx, key, resp.Start, resp.ContentLength())
	} else {
		rc, err = r.store.GetObject(ctx, key)
	}
	if err != nil {
		return nil, nil, &StorageError{Op: "open", Key: key, Err: err}
	}
	return resp, &boundedBody{rc: rc, key: key, remaining: resp.ContentLength()}, nil
}

// boundedBody turns a short or failing store stream into a StorageError so a truncated
// body is never mistaken for a complete one.
type boundedBody struct {
	rc        io.ReadCloser
	key       string
	remaining int64
}

func (b *boundedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.rc.Read(p)
	b.remaining -= int64(n)
	switch {
	case err == io.EOF && b.remaining > 0:
		return n, &StorageError{Op: "read", Key: b.key, Err: io.ErrUnexpectedEOF}
	case err == io.EOF:
		return n, io.EOF
	case err != nil:
		return n, &StorageError{Op: "read", Key: b.key, Err: err}
	}
	return n, nil
}

func (b *boundedBody) Close() error {
	return b.rc.Close()
}

// ServeKey is the HTTP binding: 200/206 with framing headers, 404 for a missing object,
// 416 with "Content-Range: bytes */<size>" for a bad range. A failure after the headers
// are sent aborts the connection instead of finishing a short body.
func (r *Responder) ServeKey(w http.ResponseWriter, req *http.Request, key string) {
	rangeHeader := req.Header.Get("Range")

	if req.Method == http.MethodHead {
		resp, err := r.Resolve(req.Context(), key, rangeHeader)
		if err != nil {
			r.writeError(w, key, err)
			return
		}
		resp.writeHeaders(w.Header(), r.cacheControl)
		w.WriteHeader(resp.Status)
		return
	}

	resp, body, err := r.Serve(req.Context(), key, rangeHeader)
	if err != nil {
		r.writeError(w, key, err)
		return
	}
	defer body.Close()

	resp.writeHeaders(w.Header(), r.cacheControl)
	w.WriteHeader(resp.Status)

	start := time.Now()
	n, err := io.CopyN(w, body, resp.ContentLength())
	if err != nil {
		if req.Context().Err() != nil {
			logger.Debug("客户端中断媒体流",
				logger.String("key", key),
				logger.Int64("sent", n))
			return
		}
		logger.Error("媒体流传输失败，中断连接",
			logger.String("key", key),
			logger.String("range", rangeHeader),
			logger.Int64("sent", n),
			logger.Int64("declared", resp.ContentLength()),
			logger.ErrorField(err))
		panic(http.ErrAbortHandler)
	}

	logger.Debug("媒体流传输完成",
		logger.String("key", key),
		logger.Int("status", resp.Status),
		logger.Int64("bytes", n),
		logger.Duration("elapsed", time.Since(start)))
}

func (r *Responder) writeError(w http.ResponseWriter, key string, err error) {
	var rangeErr *RangeError
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, "Media not found", http.StatusNotFound)
	case errors.As(err, &rangeErr):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
		w.Header().Set("Accept-Ranges", "bytes")
		http.Error(w, "Requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
	default:
		logger.Error("读取媒体对象失败",
			logger.String("key", key),
			logger.ErrorField(err))
		http.Error(w, "Storage unavailable", http.StatusInternalServerError)
	}
}
