// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"grapevine/internal/cache"
	"grapevine/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, page, limit int) (*models.Page[models.User], error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID returns the user with their reference sets populated. The base row
// is served cache-aside; the reference sets are always read fresh so they
// never lag behind the integrity engine.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.loadRefSets(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// loadRefSets fills the user's authored and liked ID sets from the mirror
// index tables.
func (r *userRepository) loadRefSets(ctx context.Context, user *models.User) error {
	user.Gossips = []uint{}
	user.Comments = []uint{}
	user.LikedGossips = []uint{}
	user.LikedComments = []uint{}

	var authored []models.AuthoredRef
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("id ASC").
		Find(&authored).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, ref := range authored {
		switch ref.ItemType {
		case models.ItemTypeGossip:
			user.Gossips = append(user.Gossips, ref.ItemID)
		case models.ItemTypeComment:
			user.Comments = append(user.Comments, ref.ItemID)
		}
	}

	var liked []models.LikedRef
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Order("id ASC").
		Find(&liked).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, ref := range liked {
		switch ref.ItemType {
		case models.ItemTypeGossip:
			user.LikedGossips = append(user.LikedGossips, ref.ItemID)
		case models.ItemTypeComment:
			user.LikedComments = append(user.LikedComments, ref.ItemID)
		}
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User with this email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// PostgreSQL unique violation SQLSTATE 23505
		return pgErr.Code == "23505"
	}
	// SQLite (tests) has no typed error here; match on the message.
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User with this email already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

func (r *userRepository) List(ctx context.Context, page, limit int) (*models.Page[models.User], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	users := []models.User{}
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return models.NewPage(users, total, page, limit), nil
}
