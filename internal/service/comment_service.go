package service

import (
	"context"

	"grapevine/internal/cache"
	"grapevine/internal/models"
	"grapevine/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	gossipRepo  repository.GossipRepository
	engine      IntegrityEngine
	isAdmin     func(ctx context.Context, userID uint) (bool, error)
}

type CreateCommentInput struct {
	UserID   uint
	GossipID uint
	ParentID *uint
	Content  string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	gossipRepo repository.GossipRepository,
	engine IntegrityEngine,
	isAdmin func(ctx context.Context, userID uint) (bool, error),
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		gossipRepo:  gossipRepo,
		engine:      engine,
		isAdmin:     isAdmin,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	const maxCommentLen = 5000

	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 5000 characters)")
	}

	comment := &models.Comment{
		Content:  in.Content,
		AuthorID: in.UserID,
		GossipID: in.GossipID,
		ParentID: in.ParentID,
	}
	if err := s.engine.AttachComment(ctx, comment); err != nil {
		return nil, err
	}

	cache.InvalidateGossip(ctx, in.GossipID)
	return s.commentRepo.GetByID(ctx, comment.ID)
}

func (s *CommentService) ListComments(ctx context.Context, gossipID uint, page, limit int) (*models.Page[*models.Comment], error) {
	if _, err := s.gossipRepo.GetByID(ctx, gossipID, 0); err != nil {
		return nil, err
	}
	return s.commentRepo.ListByGossip(ctx, gossipID, page, limit)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}

	if comment.AuthorID != in.UserID {
		if s.isAdmin == nil {
			return nil, models.NewForbiddenError("You can only delete your own comments")
		}
		admin, err := s.isAdmin(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, models.NewForbiddenError("You can only delete your own comments")
		}
	}

	if err := s.engine.DeleteComment(ctx, in.CommentID); err != nil {
		return nil, err
	}

	cache.InvalidateGossip(ctx, comment.GossipID)
	return comment, nil
}
