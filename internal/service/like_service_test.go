package service

import (
	"context"
	"testing"

	"grapevine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeService_Like(t *testing.T) {
	t.Parallel()

	t.Run("valid item type passes through", func(t *testing.T) {
		t.Parallel()
		engine := noopEngine()
		engine.likeFn = func(_ context.Context, userID uint, it models.ItemType, id uint) ([]uint, error) {
			assert.Equal(t, models.ItemTypeGossip, it)
			assert.Equal(t, uint(3), id)
			return []uint{userID}, nil
		}
		svc := NewLikeService(engine)
		likers, err := svc.Like(context.Background(), LikeInput{UserID: 1, ItemType: "Gossip", ItemID: 3})
		require.NoError(t, err)
		assert.Equal(t, []uint{1}, likers)
	})

	t.Run("wrong item type rejected", func(t *testing.T) {
		t.Parallel()
		svc := NewLikeService(noopEngine())
		_, err := svc.Like(context.Background(), LikeInput{UserID: 1, ItemType: "Post", ItemID: 3})
		assertValidationError(t, err)
	})
}

func TestLikeService_Unlike(t *testing.T) {
	t.Parallel()

	t.Run("comment target", func(t *testing.T) {
		t.Parallel()
		engine := noopEngine()
		engine.unlikeFn = func(_ context.Context, _ uint, it models.ItemType, _ uint) ([]uint, error) {
			assert.Equal(t, models.ItemTypeComment, it)
			return []uint{}, nil
		}
		svc := NewLikeService(engine)
		likers, err := svc.Unlike(context.Background(), LikeInput{UserID: 1, ItemType: "Comment", ItemID: 9})
		require.NoError(t, err)
		assert.Empty(t, likers)
	})

	t.Run("conflict propagates", func(t *testing.T) {
		t.Parallel()
		engine := noopEngine()
		engine.unlikeFn = func(_ context.Context, _ uint, _ models.ItemType, _ uint) ([]uint, error) {
			return nil, models.NewConflictError("Not liked yet")
		}
		svc := NewLikeService(engine)
		_, err := svc.Unlike(context.Background(), LikeInput{UserID: 1, ItemType: "Gossip", ItemID: 9})
		require.Error(t, err)
		assert.Equal(t, 409, models.StatusForError(err))
	})
}

func TestLikeService_GetLikes(t *testing.T) {
	t.Parallel()

	engine := noopEngine()
	engine.likesFn = func(_ context.Context, _ models.ItemType, _ uint) ([]uint, error) {
		return []uint{4, 8}, nil
	}
	svc := NewLikeService(engine)

	likers, err := svc.GetLikes(context.Background(), "Gossip", 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 8}, likers)

	_, err = svc.GetLikes(context.Background(), "nonsense", 2)
	assertValidationError(t, err)
}
