package repository

import (
	"context"
	"errors"

	"grapevine/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines read operations for comments. All writes go
// through the integrity engine instead.
type CommentRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByGossip(ctx context.Context, gossipID uint, page, limit int) (*models.Page[*models.Comment], error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.applyCommentDetails(r.db.WithContext(ctx)).
		Preload("Author").
		First(&comment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

func (r *commentRepository) ListByGossip(ctx context.Context, gossipID uint, page, limit int) (*models.Page[*models.Comment], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("gossip_id = ?", gossipID).
		Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	comments := []*models.Comment{}
	err := r.applyCommentDetails(r.db.WithContext(ctx)).
		Preload("Author").
		Where("gossip_id = ?", gossipID).
		Order("comments.created_at ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return models.NewPage(comments, total, page, limit), nil
}

// applyCommentDetails adds the likes count subquery.
func (r *commentRepository) applyCommentDetails(db *gorm.DB) *gorm.DB {
	return db.Select("comments.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.item_type = 'Comment' AND likes.item_id = comments.id) as likes_count")
}

