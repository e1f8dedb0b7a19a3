// Package integrity owns the bidirectional reference sets that tie users,
// gossips, comments and likes together. Every mutation of those sets goes
// through the Engine, which keeps the forward rows and their mirror index
// rows consistent inside a single transaction.
package integrity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"grapevine/internal/models"
	"grapevine/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Engine maintains reference consistency between entities.
type Engine struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewEngine returns an engine bound to the given database.
func NewEngine(db *gorm.DB, logger *slog.Logger) *Engine {
	return &Engine{db: db, logger: logger}
}

// AttachGossip persists a new gossip and appends it to the author's authored
// set. The authored ref is appended after the gossip row commits; if that
// append fails the gossip still stands and the failure is logged, matching
// the create path's fire-and-continue contract.
func (e *Engine) AttachGossip(ctx context.Context, gossip *models.Gossip) error {
	if err := e.db.WithContext(ctx).Create(gossip).Error; err != nil {
		return models.NewInternalError(err)
	}

	ref := models.AuthoredRef{
		UserID:   gossip.AuthorID,
		ItemType: models.ItemTypeGossip,
		ItemID:   gossip.ID,
	}
	err := e.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ref).Error
	if err != nil {
		observability.RecordRefOp("attach_gossip", "ref_failed")
		e.logger.WarnContext(ctx, "failed to append gossip to author's authored set",
			slog.Uint64("gossip_id", uint64(gossip.ID)),
			slog.Uint64("author_id", uint64(gossip.AuthorID)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	observability.RecordRefOp("attach_gossip", "ok")
	return nil
}

// AttachComment persists a new comment and wires every reference that points
// at it: the author's authored set and the gossip's comment set. Replies to
// replies are collapsed onto the reply's own parent, so a thread never grows
// past two levels.
func (e *Engine) AttachComment(ctx context.Context, comment *models.Comment) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gossip models.Gossip
		if err := tx.Select("id").First(&gossip, comment.GossipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Gossip", comment.GossipID)
			}
			return models.NewInternalError(err)
		}

		if comment.ParentID != nil {
			var parent models.Comment
			if err := tx.First(&parent, *comment.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return models.NewNotFoundError("Comment", *comment.ParentID)
				}
				return models.NewInternalError(err)
			}
			if parent.GossipID != comment.GossipID {
				return models.NewValidationError("Parent comment belongs to a different gossip")
			}
			if parent.ParentID != nil {
				// Depth collapse: the new comment hangs off the top-level
				// comment instead of the reply.
				comment.ParentID = parent.ParentID
			}
		}

		if err := tx.Create(comment).Error; err != nil {
			return models.NewInternalError(err)
		}

		authored := models.AuthoredRef{
			UserID:   comment.AuthorID,
			ItemType: models.ItemTypeComment,
			ItemID:   comment.ID,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&authored).Error; err != nil {
			return models.NewInternalError(err)
		}

		gcRef := models.GossipCommentRef{GossipID: comment.GossipID, CommentID: comment.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&gcRef).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		observability.RecordRefOp("attach_comment", "failed")
		return err
	}
	observability.RecordRefOp("attach_comment", "ok")
	return nil
}

// Like adds the user to the target's likes set and the target to the user's
// liked set, atomically. Liking something twice is a conflict. Returns the
// target's updated liker list.
func (e *Engine) Like(ctx context.Context, userID uint, itemType models.ItemType, itemID uint) ([]uint, error) {
	var likers []uint
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.targetExists(tx, itemType, itemID); err != nil {
			return err
		}

		like := models.Like{ItemType: itemType, ItemID: itemID, UserID: userID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Already liked")
		}

		ref := models.LikedRef{UserID: userID, ItemType: itemType, ItemID: itemID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ref).Error; err != nil {
			return models.NewInternalError(err)
		}

		var err error
		likers, err = likersOf(tx, itemType, itemID)
		return err
	})
	if err != nil {
		observability.RecordRefOp("like", "failed")
		return nil, err
	}
	observability.RecordRefOp("like", "ok")
	return likers, nil
}

// Unlike removes the user from the target's likes set and the target from
// the user's liked set. Unliking something never liked is a conflict.
func (e *Engine) Unlike(ctx context.Context, userID uint, itemType models.ItemType, itemID uint) ([]uint, error) {
	var likers []uint
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.targetExists(tx, itemType, itemID); err != nil {
			return err
		}

		res := tx.Where("item_type = ? AND item_id = ? AND user_id = ?", itemType, itemID, userID).
			Delete(&models.Like{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewConflictError("Not liked yet")
		}

		if err := tx.Where("user_id = ? AND item_type = ? AND item_id = ?", userID, itemType, itemID).
			Delete(&models.LikedRef{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		var err error
		likers, err = likersOf(tx, itemType, itemID)
		return err
	})
	if err != nil {
		observability.RecordRefOp("unlike", "failed")
		return nil, err
	}
	observability.RecordRefOp("unlike", "ok")
	return likers, nil
}

// Likes returns the IDs of users who like the target.
func (e *Engine) Likes(ctx context.Context, itemType models.ItemType, itemID uint) ([]uint, error) {
	tx := e.db.WithContext(ctx)
	if err := e.targetExists(tx, itemType, itemID); err != nil {
		return nil, err
	}
	return likersOf(tx, itemType, itemID)
}

// DeleteGossip removes a gossip together with its entire comment tree and
// every reference row pointing at any of them. The whole cascade runs in one
// transaction; a failure anywhere rolls everything back.
func (e *Engine) DeleteGossip(ctx context.Context, gossipID uint) error {
	span, ctx := observability.NewSpan(ctx, "integrity.DeleteGossip")
	defer span.End()
	span.AddAttributes(attribute.Int64("gossip.id", int64(gossipID)))
	start := time.Now()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var gossip models.Gossip
		if err := tx.Select("id", "author_id").First(&gossip, gossipID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Gossip", gossipID)
			}
			return models.NewInternalError(err)
		}

		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).
			Where("gossip_id = ?", gossipID).
			Pluck("id", &commentIDs).Error; err != nil {
			return models.NewInternalError(err)
		}

		if err := e.purgeComments(tx, commentIDs); err != nil {
			return err
		}

		// Likes on the gossip itself, both sides.
		if err := tx.Where("item_type = ? AND item_id = ?", models.ItemTypeGossip, gossipID).
			Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("item_type = ? AND item_id = ?", models.ItemTypeGossip, gossipID).
			Delete(&models.LikedRef{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		// The author's authored ref and the gossip's comment set.
		if err := tx.Where("item_type = ? AND item_id = ?", models.ItemTypeGossip, gossipID).
			Delete(&models.AuthoredRef{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("gossip_id = ?", gossipID).
			Delete(&models.GossipCommentRef{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		if err := tx.Unscoped().Delete(&models.Gossip{}, gossipID).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	observability.ObserveCascade("gossip", start)
	if err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// DeleteComment removes a comment and, when it is a top-level comment, every
// reply under it, along with all reference rows pointing at any of them.
func (e *Engine) DeleteComment(ctx context.Context, commentID uint) error {
	span, ctx := observability.NewSpan(ctx, "integrity.DeleteComment")
	defer span.End()
	span.AddAttributes(attribute.Int64("comment.id", int64(commentID)))
	start := time.Now()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Select("id", "gossip_id").First(&comment, commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Comment", commentID)
			}
			return models.NewInternalError(err)
		}

		doomed := []uint{commentID}
		var replyIDs []uint
		if err := tx.Model(&models.Comment{}).
			Where("parent_id = ?", commentID).
			Pluck("id", &replyIDs).Error; err != nil {
			return models.NewInternalError(err)
		}
		doomed = append(doomed, replyIDs...)

		return e.purgeComments(tx, doomed)
	})

	observability.ObserveCascade("comment", start)
	if err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// DeleteUser removes a user and everything reachable from them: their
// gossips (with full comment trees), their comments on other gossips, their
// likes, and every reference row other entities hold about any of it.
func (e *Engine) DeleteUser(ctx context.Context, userID uint) error {
	span, ctx := observability.NewSpan(ctx, "integrity.DeleteUser")
	defer span.End()
	span.AddAttributes(attribute.Int64("user.id", int64(userID)))
	start := time.Now()

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Select("id").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", userID)
			}
			return models.NewInternalError(err)
		}

		var gossipIDs []uint
		if err := tx.Model(&models.Gossip{}).
			Where("author_id = ?", userID).
			Pluck("id", &gossipIDs).Error; err != nil {
			return models.NewInternalError(err)
		}

		// Every comment that must die: the user's own, plus every comment
		// (by anyone) sitting under one of the user's gossips.
		var doomedComments []uint
		q := tx.Model(&models.Comment{}).Where("author_id = ?", userID)
		if len(gossipIDs) > 0 {
			q = q.Or("gossip_id IN ?", gossipIDs)
		}
		if err := q.Distinct().Pluck("id", &doomedComments).Error; err != nil {
			return models.NewInternalError(err)
		}

		// Survivors' replies whose parent is about to be purged go too,
		// same as DeleteComment. Replies only ever point at top-level
		// comments, so a single pass finds them all.
		if len(doomedComments) > 0 {
			var replyIDs []uint
			if err := tx.Model(&models.Comment{}).
				Where("parent_id IN ?", doomedComments).
				Pluck("id", &replyIDs).Error; err != nil {
				return models.NewInternalError(err)
			}
			doomedComments = append(doomedComments, replyIDs...)
		}

		if err := e.purgeComments(tx, doomedComments); err != nil {
			return err
		}

		if len(gossipIDs) > 0 {
			if err := tx.Where("item_type = ? AND item_id IN ?", models.ItemTypeGossip, gossipIDs).
				Delete(&models.Like{}).Error; err != nil {
				return models.NewInternalError(err)
			}
			if err := tx.Where("item_type = ? AND item_id IN ?", models.ItemTypeGossip, gossipIDs).
				Delete(&models.LikedRef{}).Error; err != nil {
				return models.NewInternalError(err)
			}
			if err := tx.Where("item_type = ? AND item_id IN ?", models.ItemTypeGossip, gossipIDs).
				Delete(&models.AuthoredRef{}).Error; err != nil {
				return models.NewInternalError(err)
			}
			if err := tx.Where("gossip_id IN ?", gossipIDs).
				Delete(&models.GossipCommentRef{}).Error; err != nil {
				return models.NewInternalError(err)
			}
			if err := tx.Unscoped().Where("author_id = ?", userID).
				Delete(&models.Gossip{}).Error; err != nil {
				return models.NewInternalError(err)
			}
		}

		// The user's own likes on surviving content, both sides.
		if err := tx.Where("user_id = ?", userID).Delete(&models.Like{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.LikedRef{}).Error; err != nil {
			return models.NewInternalError(err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.AuthoredRef{}).Error; err != nil {
			return models.NewInternalError(err)
		}

		if err := tx.Unscoped().Delete(&models.User{}, userID).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	observability.ObserveCascade("user", start)
	if err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// purgeComments hard-deletes the given comments and every reference row
// pointing at them, regardless of who authored them or what they belong to.
func (e *Engine) purgeComments(tx *gorm.DB, commentIDs []uint) error {
	if len(commentIDs) == 0 {
		return nil
	}

	if err := tx.Where("item_type = ? AND item_id IN ?", models.ItemTypeComment, commentIDs).
		Delete(&models.Like{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := tx.Where("item_type = ? AND item_id IN ?", models.ItemTypeComment, commentIDs).
		Delete(&models.LikedRef{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := tx.Where("item_type = ? AND item_id IN ?", models.ItemTypeComment, commentIDs).
		Delete(&models.AuthoredRef{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := tx.Where("comment_id IN ?", commentIDs).
		Delete(&models.GossipCommentRef{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if err := tx.Unscoped().Where("id IN ?", commentIDs).Delete(&models.Comment{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// targetExists verifies that the like target is a live row.
func (e *Engine) targetExists(tx *gorm.DB, itemType models.ItemType, itemID uint) error {
	var err error
	switch itemType {
	case models.ItemTypeGossip:
		err = tx.Select("id").First(&models.Gossip{}, itemID).Error
	case models.ItemTypeComment:
		err = tx.Select("id").First(&models.Comment{}, itemID).Error
	default:
		return models.NewValidationError("Wrong item type")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(string(itemType), itemID)
	}
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// likersOf returns the user IDs in the target's likes set, oldest first.
func likersOf(tx *gorm.DB, itemType models.ItemType, itemID uint) ([]uint, error) {
	likers := []uint{}
	err := tx.Model(&models.Like{}).
		Where("item_type = ? AND item_id = ?", itemType, itemID).
		Order("id ASC").
		Pluck("user_id", &likers).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return likers, nil
}
