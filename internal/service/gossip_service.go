// Package service contains the application's business logic layer.
package service

import (
	"context"
	"log/slog"

	"grapevine/internal/cache"
	"grapevine/internal/models"
	"grapevine/internal/repository"
)

const (
	maxTitleLen   = 200
	maxContentLen = 20000
)

type GossipService struct {
	gossipRepo repository.GossipRepository
	engine     IntegrityEngine
	images     *ImageService
	logger     *slog.Logger
	isAdmin    func(ctx context.Context, userID uint) (bool, error)
}

type CreateGossipInput struct {
	UserID  uint
	Title   string
	Content string
	Image   []byte
}

type UpdateGossipInput struct {
	UserID   uint
	GossipID uint
	Title    *string
	Content  *string
	Image    []byte
}

type DeleteGossipInput struct {
	UserID   uint
	GossipID uint
}

func NewGossipService(
	gossipRepo repository.GossipRepository,
	engine IntegrityEngine,
	images *ImageService,
	logger *slog.Logger,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *GossipService {
	return &GossipService{
		gossipRepo: gossipRepo,
		engine:     engine,
		images:     images,
		logger:     logger,
		isAdmin:    isAdmin,
	}
}

func (s *GossipService) CreateGossip(ctx context.Context, in CreateGossipInput) (*models.Gossip, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 200 characters)")
	}
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxContentLen {
		return nil, models.NewValidationError("Content too long (max 20000 characters)")
	}

	gossip := &models.Gossip{
		Title:    in.Title,
		Content:  in.Content,
		AuthorID: in.UserID,
	}

	if len(in.Image) > 0 {
		ref, err := s.images.Process(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		gossip.ImageRef = ref
	}

	if err := s.engine.AttachGossip(ctx, gossip); err != nil {
		if gossip.ImageRef != "" {
			if rmErr := s.images.Remove(ctx, gossip.ImageRef); rmErr != nil {
				s.logger.WarnContext(ctx, "failed to clean up image after create failure",
					slog.String("ref", gossip.ImageRef), slog.String("error", rmErr.Error()))
			}
		}
		return nil, err
	}

	return s.GetGossip(ctx, gossip.ID, in.UserID)
}

func (s *GossipService) GetGossip(ctx context.Context, id, currentUserID uint) (*models.Gossip, error) {
	gossip, err := s.gossipRepo.GetByID(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	gossip.ImageURL = s.images.URLFor(gossip.ImageRef)
	return gossip, nil
}

func (s *GossipService) ListGossips(ctx context.Context, params repository.GossipListParams, currentUserID uint) (*models.Page[*models.Gossip], error) {
	page, err := s.gossipRepo.List(ctx, params, currentUserID)
	if err != nil {
		return nil, err
	}
	for _, g := range page.Items {
		g.ImageURL = s.images.URLFor(g.ImageRef)
	}
	return page, nil
}

func (s *GossipService) UpdateGossip(ctx context.Context, in UpdateGossipInput) (*models.Gossip, error) {
	gossip, err := s.gossipRepo.GetByID(ctx, in.GossipID, 0)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, gossip.AuthorID, in.UserID, "You can only update your own gossips"); err != nil {
		return nil, err
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if len(*in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 200 characters)")
		}
		gossip.Title = *in.Title
	}
	if in.Content != nil {
		if *in.Content == "" {
			return nil, models.NewValidationError("Content is required")
		}
		if len(*in.Content) > maxContentLen {
			return nil, models.NewValidationError("Content too long (max 20000 characters)")
		}
		gossip.Content = *in.Content
	}

	oldImage := ""
	if len(in.Image) > 0 {
		ref, imgErr := s.images.Process(ctx, in.Image)
		if imgErr != nil {
			return nil, imgErr
		}
		oldImage = gossip.ImageRef
		gossip.ImageRef = ref
	}

	if err := s.gossipRepo.Update(ctx, gossip); err != nil {
		return nil, err
	}

	if oldImage != "" {
		if rmErr := s.images.Remove(ctx, oldImage); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove replaced image",
				slog.String("ref", oldImage), slog.String("error", rmErr.Error()))
		}
	}

	return s.GetGossip(ctx, gossip.ID, in.UserID)
}

// DeleteGossip runs the cascade and returns the gossip's prior state so the
// caller can report what was removed.
func (s *GossipService) DeleteGossip(ctx context.Context, in DeleteGossipInput) (*models.Gossip, error) {
	gossip, err := s.gossipRepo.GetByID(ctx, in.GossipID, 0)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, gossip.AuthorID, in.UserID, "You can only delete your own gossips"); err != nil {
		return nil, err
	}

	if err := s.engine.DeleteGossip(ctx, in.GossipID); err != nil {
		return nil, err
	}

	cache.InvalidateGossip(ctx, in.GossipID)
	cache.InvalidateUser(ctx, gossip.AuthorID)

	if gossip.ImageRef != "" {
		if rmErr := s.images.Remove(ctx, gossip.ImageRef); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove deleted gossip's image",
				slog.String("ref", gossip.ImageRef), slog.String("error", rmErr.Error()))
		}
	}
	return gossip, nil
}

// authorize allows the resource owner, or an admin when the lookup is wired.
func (s *GossipService) authorize(ctx context.Context, ownerID, userID uint, denied string) error {
	if ownerID == userID {
		return nil
	}
	if s.isAdmin == nil {
		return models.NewForbiddenError(denied)
	}
	admin, err := s.isAdmin(ctx, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError(denied)
	}
	return nil
}
