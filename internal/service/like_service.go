package service

import (
	"context"

	"grapevine/internal/cache"
	"grapevine/internal/models"
)

// LikeService fronts the integrity engine for like operations and keeps the
// gossip cache honest.
type LikeService struct {
	engine IntegrityEngine
}

type LikeInput struct {
	UserID   uint
	ItemType string
	ItemID   uint
}

func NewLikeService(engine IntegrityEngine) *LikeService {
	return &LikeService{engine: engine}
}

func (s *LikeService) Like(ctx context.Context, in LikeInput) ([]uint, error) {
	itemType, err := models.ParseItemType(in.ItemType)
	if err != nil {
		return nil, err
	}

	likers, err := s.engine.Like(ctx, in.UserID, itemType, in.ItemID)
	if err != nil {
		return nil, err
	}

	if itemType == models.ItemTypeGossip {
		cache.InvalidateGossip(ctx, in.ItemID)
	}
	cache.InvalidateUser(ctx, in.UserID)
	return likers, nil
}

func (s *LikeService) Unlike(ctx context.Context, in LikeInput) ([]uint, error) {
	itemType, err := models.ParseItemType(in.ItemType)
	if err != nil {
		return nil, err
	}

	likers, err := s.engine.Unlike(ctx, in.UserID, itemType, in.ItemID)
	if err != nil {
		return nil, err
	}

	if itemType == models.ItemTypeGossip {
		cache.InvalidateGossip(ctx, in.ItemID)
	}
	cache.InvalidateUser(ctx, in.UserID)
	return likers, nil
}

func (s *LikeService) GetLikes(ctx context.Context, rawItemType string, itemID uint) ([]uint, error) {
	itemType, err := models.ParseItemType(rawItemType)
	if err != nil {
		return nil, err
	}
	return s.engine.Likes(ctx, itemType, itemID)
}
