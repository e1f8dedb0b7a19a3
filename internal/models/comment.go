package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a reply attached to a gossip, optionally itself a reply to
// another comment. ParentID always points at a top-level comment: the
// integrity engine collapses deeper parent chains at creation time, so
// threads never exceed two levels.
type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Content    string         `gorm:"not null" json:"content"`
	AuthorID   uint           `gorm:"not null;index" json:"author_id"`
	GossipID   uint           `gorm:"not null;index" json:"gossip_id"`
	ParentID   *uint          `gorm:"index" json:"parent_id"`
	Author     User           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	LikesCount int            `gorm:"-" json:"likes_count"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
