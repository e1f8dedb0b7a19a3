package repository

import (
	"context"
	"testing"

	"grapevine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_GetByID(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "user@example.com")
	g := createTestGossip(t, db, user.ID, "with comments")
	c := createTestComment(t, db, user.ID, g.ID)
	require.NoError(t, db.Create(&models.Like{ItemType: models.ItemTypeComment, ItemID: c.ID, UserID: user.ID}).Error)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, user.ID, got.Author.ID)
}

func TestCommentRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)

	_, err := repo.GetByID(context.Background(), 9000)
	require.Error(t, err)
	assert.Equal(t, 404, models.StatusForError(err))
}

func TestCommentRepository_ListByGossip(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "user@example.com")
	g := createTestGossip(t, db, user.ID, "threaded")
	other := createTestGossip(t, db, user.ID, "other")
	for i := 0; i < 3; i++ {
		createTestComment(t, db, user.ID, g.ID)
	}
	createTestComment(t, db, user.ID, other.ID)

	page, err := repo.ListByGossip(ctx, g.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	page2, err := repo.ListByGossip(ctx, g.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1)
}

