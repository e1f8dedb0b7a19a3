package repository

import (
	"context"
	"errors"

	"grapevine/internal/cache"
	"grapevine/internal/models"

	"gorm.io/gorm"
)

// GossipListParams carries pagination, sorting and search options for
// gossip listings.
type GossipListParams struct {
	Page      int
	Limit     int
	SortField string
	SortOrder string
	Search    string
	AuthorID  uint
}

// GossipRepository defines read and update operations for gossips. Creation
// and deletion go through the integrity engine instead.
type GossipRepository interface {
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Gossip, error)
	List(ctx context.Context, params GossipListParams, currentUserID uint) (*models.Page[*models.Gossip], error)
	Update(ctx context.Context, gossip *models.Gossip) error
}

type gossipRepository struct {
	db *gorm.DB
}

// NewGossipRepository creates a new gossip repository
func NewGossipRepository(db *gorm.DB) GossipRepository {
	return &gossipRepository{db: db}
}

func (r *gossipRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Gossip, error) {
	var gossip models.Gossip

	var err error
	if currentUserID == 0 {
		// Anonymous views share a cached copy; authenticated views need the
		// per-user liked flag and always hit the database.
		err = cache.Aside(ctx, cache.GossipKey(id), &gossip, cache.GossipTTL, func() error {
			return r.applyGossipDetails(r.db.WithContext(ctx), 0).
				Preload("Author").
				First(&gossip, id).Error
		})
	} else {
		err = r.applyGossipDetails(r.db.WithContext(ctx), currentUserID).
			Preload("Author").
			First(&gossip, id).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Gossip", id)
		}
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return &gossip, nil
}

var gossipSortFields = map[string]string{
	"created_at":  "gossips.created_at",
	"updated_at":  "gossips.updated_at",
	"title":       "gossips.title",
	"likes_count": "likes_count",
}

func (r *gossipRepository) List(ctx context.Context, params GossipListParams, currentUserID uint) (*models.Page[*models.Gossip], error) {
	base := r.db.WithContext(ctx).Model(&models.Gossip{})
	if params.Search != "" {
		like := "%" + params.Search + "%"
		base = base.Where("LOWER(title) LIKE LOWER(?) OR LOWER(content) LIKE LOWER(?)", like, like)
	}
	if params.AuthorID != 0 {
		base = base.Where("gossips.author_id = ?", params.AuthorID)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	column, ok := gossipSortFields[params.SortField]
	if !ok {
		column = "gossips.created_at"
	}
	direction := "DESC"
	if params.SortOrder == "asc" {
		direction = "ASC"
	}

	gossips := []*models.Gossip{}
	err := r.applyGossipDetails(base, currentUserID).
		Preload("Author").
		Order(column + " " + direction).
		Limit(params.Limit).
		Offset((params.Page - 1) * params.Limit).
		Find(&gossips).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return models.NewPage(gossips, total, params.Page, params.Limit), nil
}

// applyGossipDetails adds subqueries to fetch counts and liked status in a single query.
// The comment count reads the gossip's maintained comment set rather than the
// comments table, so it reflects exactly what the integrity engine tracks.
func (r *gossipRepository) applyGossipDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "gossips.*, " +
		"(SELECT COUNT(*) FROM gossip_comment_refs WHERE gossip_comment_refs.gossip_id = gossips.id) as comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.item_type = 'Gossip' AND likes.item_id = gossips.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.item_type = 'Gossip' AND likes.item_id = gossips.id AND likes.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery + ", false as liked")
}

func (r *gossipRepository) Update(ctx context.Context, gossip *models.Gossip) error {
	err := r.db.WithContext(ctx).Model(gossip).
		Select("Title", "Content", "ImageRef", "UpdatedAt").
		Updates(gossip).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateGossip(ctx, gossip.ID)
	return nil
}
