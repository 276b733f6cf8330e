package server

import (
	"fmt"
	"net/http"
	"time"

	"Bt1Stream/logger"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// responseWriter 记录状态码和写出字节数
type responseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(p)
	rw.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// RequestIDMiddleware 为每个请求分配请求ID，沿用客户端传入的值
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// LoggingMiddleware 访问日志。中断的流也会记录一条。
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		defer func() {
			logger.Info("request",
				logger.String("requestId", r.Header.Get(requestIDHeader)),
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("range", r.Header.Get("Range")),
				logger.Int("status", wrapped.status),
				logger.Int64("bytes", wrapped.bytes),
				logger.Duration("duration", time.Since(start)),
				logger.String("remote", r.RemoteAddr))
		}()
		next.ServeHTTP(wrapped, r)
	})
}

// RecoveryMiddleware 捕获处理函数中的 panic。http.ErrAbortHandler 原样抛出，由 net/http 断开连接。
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("处理请求时发生panic",
				logger.String("requestId", r.Header.Get(requestIDHeader)),
				logger.String("path", r.URL.Path),
				logger.String("panic", fmt.Sprint(rec)))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware 允许跨域播放，暴露分段相关的响应头
func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges, ETag")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
