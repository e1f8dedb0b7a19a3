package service

import (
	"context"

	"grapevine/internal/models"
)

// IntegrityEngine is the slice of the reference integrity engine the
// services depend on. Satisfied by integrity.Engine.
type IntegrityEngine interface {
	AttachGossip(ctx context.Context, gossip *models.Gossip) error
	AttachComment(ctx context.Context, comment *models.Comment) error
	Like(ctx context.Context, userID uint, itemType models.ItemType, itemID uint) ([]uint, error)
	Unlike(ctx context.Context, userID uint, itemType models.ItemType, itemID uint) ([]uint, error)
	Likes(ctx context.Context, itemType models.ItemType, itemID uint) ([]uint, error)
	DeleteGossip(ctx context.Context, gossipID uint) error
	DeleteComment(ctx context.Context, commentID uint) error
	DeleteUser(ctx context.Context, userID uint) error
}
