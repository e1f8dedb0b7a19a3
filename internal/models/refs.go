package models

import "time"

// ItemType tags the two likeable entity kinds. It is a closed enum; anything
// else coming in over the wire is a bad request, never a crash.
type ItemType string

const (
	ItemTypeGossip  ItemType = "Gossip"
	ItemTypeComment ItemType = "Comment"
)

// ParseItemType validates a raw itemType query value.
func ParseItemType(raw string) (ItemType, error) {
	switch ItemType(raw) {
	case ItemTypeGossip, ItemTypeComment:
		return ItemType(raw), nil
	}
	return "", NewValidationError("Wrong item type")
}

// Like is the forward side of a like relation: one row per member of the
// target's likes set. The combination of target and user must be unique.
// Rows are hard-deleted; a like that is gone is gone.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ItemType  ItemType  `gorm:"not null;uniqueIndex:idx_like_target" json:"item_type"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_like_target" json:"item_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_like_target;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LikedRef mirrors Like from the user's side: one row per member of the
// user's likedGossips/likedComments sets. The integrity engine writes both
// sides together and never leaves one orphaned.
type LikedRef struct {
	ID       uint     `gorm:"primaryKey" json:"-"`
	UserID   uint     `gorm:"not null;uniqueIndex:idx_liked_ref;index" json:"user_id"`
	ItemType ItemType `gorm:"not null;uniqueIndex:idx_liked_ref" json:"item_type"`
	ItemID   uint     `gorm:"not null;uniqueIndex:idx_liked_ref" json:"item_id"`
}

// AuthoredRef is one member of a user's authored gossips/comments sets.
// Authorship itself lives on the entity's author_id column; these rows are
// the maintained listing index.
type AuthoredRef struct {
	ID       uint     `gorm:"primaryKey" json:"-"`
	UserID   uint     `gorm:"not null;uniqueIndex:idx_authored_ref;index" json:"user_id"`
	ItemType ItemType `gorm:"not null;uniqueIndex:idx_authored_ref" json:"item_type"`
	ItemID   uint     `gorm:"not null;uniqueIndex:idx_authored_ref" json:"item_id"`
}

// GossipCommentRef is one member of a gossip's comments set.
type GossipCommentRef struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	GossipID  uint `gorm:"not null;uniqueIndex:idx_gossip_comment;index" json:"gossip_id"`
	CommentID uint `gorm:"not null;uniqueIndex:idx_gossip_comment" json:"comment_id"`
}
