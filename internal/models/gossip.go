package models

import (
	"time"

	"gorm.io/gorm"
)

// Gossip is a user-authored post: title, content and an optional image.
type Gossip struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `gorm:"not null" json:"title"`
	Content  string `gorm:"not null" json:"content"`
	ImageRef string `json:"-"`
	AuthorID uint   `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	// ImageURL is resolved from ImageRef at view time; not persisted.
	ImageURL string `gorm:"-" json:"image_url,omitempty"`
	// LikesCount is not persisted; computed at query time.
	LikesCount int `gorm:"-" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time.
	CommentsCount int `gorm:"-" json:"comments_count"`
	// Liked indicates whether the current requesting user liked this gossip (computed).
	Liked     bool           `gorm:"-" json:"liked"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
