package model

import "time"

// Artist 歌手
type Artist struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"size:255;not null;index"`
	Bio       string    `json:"bio,omitempty" gorm:"type:text"`
	ImageURL  string    `json:"imageUrl,omitempty" gorm:"size:512"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Artist) TableName() string {
	return "artists"
}

// Song 歌曲，StorageKey 是音频在对象存储中的键
type Song struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title      string    `json:"title" gorm:"size:255;not null"`
	ArtistID   int64     `json:"artistId" gorm:"index;not null"`
	Artist     *Artist   `json:"artist,omitempty" gorm:"foreignKey:ArtistID"`
	Album      string    `json:"album" gorm:"size:255"`
	Duration   float64   `json:"duration"` // seconds
	StorageKey string    `json:"-" gorm:"size:512;not null"`
	CoverURL   string    `json:"coverUrl,omitempty" gorm:"size:512"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Song) TableName() string {
	return "songs"
}

// ArtistName returns the preloaded artist's name, or "" when absent.
func (s *Song) ArtistName() string {
	if s.Artist == nil {
		return ""
	}
	return s.Artist.Name
}
