package repository

import (
	"context"
	"errors"

	"Bt1Stream/logger"
	"Bt1Stream/model"

	"gorm.io/gorm"
)

// SongRepository 歌曲数据访问接口
type SongRepository interface {
	// GetSongByID 根据ID获取歌曲，不存在时返回 (nil, nil)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
}

// gormSongRepository GORM 实现
type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository 创建 GORM 歌曲仓库
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

func (r *gormSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).
		Preload("Artist").
		Where("id = ?", id).
		First(&song).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &song, nil
}

// SongCache 歌曲缓存，未命中返回 (nil, nil)
type SongCache interface {
	GetSong(ctx context.Context, id int64) (*model.Song, error)
	SetSong(ctx context.Context, song *model.Song) error
}

type cachedSongRepository struct {
	inner SongRepository
	cache SongCache
}

// NewCachedSongRepository 先查缓存，未命中时回源并回填。缓存故障按未命中处理。
func NewCachedSongRepository(inner SongRepository, cache SongCache) SongRepository {
	return &cachedSongRepository{inner: inner, cache: cache}
}

func (r *cachedSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	song, err := r.cache.GetSong(ctx, id)
	if err != nil {
		logger.Warn("读取歌曲缓存失败", logger.Int64("songId", id), logger.ErrorField(err))
	} else if song != nil {
		return song, nil
	}

	song, err = r.inner.GetSongByID(ctx, id)
	if err != nil || song == nil {
		return song, err
	}

	if err := r.cache.SetSong(ctx, song); err != nil {
		logger.Warn("写入歌曲缓存失败", logger.Int64("songId", id), logger.ErrorField(err))
	}
	return song, nil
}
