package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"Bt1Stream/cache"
	"Bt1Stream/config"
	"Bt1Stream/core/stream"
	"Bt1Stream/db"
	"Bt1Stream/logger"
	"Bt1Stream/model"
	"Bt1Stream/repository"
	"Bt1Stream/storage"

	"github.com/gorilla/mux"
)

// NewRouter 注册所有路由和中间件
func NewRouter(h *MediaHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, LoggingMiddleware, RecoveryMiddleware, CORSMiddleware)

	read := []string{http.MethodGet, http.MethodHead, http.MethodOptions}

	router.HandleFunc("/healthz", Health).Methods(http.MethodGet)
	router.HandleFunc("/media/{key:.+}", h.ServeMedia).Methods(read...)
	router.HandleFunc("/covers/{key:.+}", h.ServeCover).Methods(read...)

	if h.songs != nil {
		router.HandleFunc("/api/songs/{id}/stream", h.StreamSong).Methods(read...)
		router.HandleFunc("/api/songs/{id}", h.GetSong).Methods(http.MethodGet, http.MethodOptions)
	}
	return router
}

// openStore 按配置选择对象存储
func openStore(ctx context.Context, cfg *config.Config) (stream.ObjectStore, error) {
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("使用内存存储，数据不会持久化")
		return storage.NewMemoryStore(), nil
	case "minio", "":
		return storage.NewMinioStore(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

// openSongs 连接数据库和可选的Redis缓存。数据库关闭时返回 nil。
func openSongs(cfg *config.Config) (repository.SongRepository, func(), error) {
	if !cfg.DBEnabled {
		logger.Warn("数据库未启用，歌曲接口不可用")
		return nil, func() {}, nil
	}
	if err := db.ConnectGormDB(cfg); err != nil {
		return nil, nil, err
	}
	if err := db.AutoMigrateModels(&model.Artist{}, &model.Song{}); err != nil {
		_ = db.CloseGormDB()
		return nil, nil, err
	}
	songs := repository.NewGormSongRepository(db.GormDB)
	closers := []func() error{db.CloseGormDB}

	if cfg.RedisEnabled {
		if err := cache.ConnectRedis(cfg); err != nil {
			// 缓存不可用时直接查库
			logger.Warn("Redis连接失败，禁用歌曲缓存", logger.ErrorField(err))
		} else {
			songs = repository.NewCachedSongRepository(songs, cache.NewRedisSongCache(cache.RedisClient, cfg.SongCacheTTL))
			closers = append(closers, cache.CloseRedis)
		}
	}

	return songs, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("关闭连接失败", logger.ErrorField(err))
			}
		}
	}, nil
}

// Start 初始化依赖并启动HTTP服务，收到 SIGINT/SIGTERM 后优雅退出
func Start(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.StorageTimeout)
	store, err := openStore(ctx, cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("初始化对象存储失败: %w", err)
	}

	songs, closeSongs, err := openSongs(cfg)
	if err != nil {
		return fmt.Errorf("初始化歌曲库失败: %w", err)
	}
	defer closeSongs()

	handler := NewMediaHandler(store, songs,
		stream.WithCacheControl(cfg.CacheControl),
		stream.WithStatTimeout(cfg.StorageTimeout))

	// 不设置 WriteTimeout，长音频流可能持续数分钟
	srv := &http.Server{
		Addr:        cfg.HTTPAddr,
		Handler:     NewRouter(handler),
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务启动", logger.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}

	logger.Info("正在关闭服务...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("服务已停止")
	return nil
}
