package repository

import (
	"context"
	"testing"

	"grapevine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGetByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{
		FirstName: "Greta",
		LastName:  "Vine",
		Email:     "greta@example.com",
		Password:  "hashed",
		Role:      models.RoleBasic,
	}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotZero(t, user.ID)

	found, err := repo.GetByEmail(ctx, "greta@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "dup@example.com")

	err := repo.Create(ctx, &models.User{
		FirstName: "Other",
		LastName:  "Person",
		Email:     "dup@example.com",
		Password:  "hashed",
	})
	require.Error(t, err)
	assert.Equal(t, 409, models.StatusForError(err))
}

func TestUserRepository_GetByID_LoadsRefSets(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "refs@example.com")
	g := createTestGossip(t, db, user.ID, "hello")
	c := createTestComment(t, db, user.ID, g.ID)

	require.NoError(t, db.Create(&models.AuthoredRef{UserID: user.ID, ItemType: models.ItemTypeGossip, ItemID: g.ID}).Error)
	require.NoError(t, db.Create(&models.AuthoredRef{UserID: user.ID, ItemType: models.ItemTypeComment, ItemID: c.ID}).Error)
	require.NoError(t, db.Create(&models.LikedRef{UserID: user.ID, ItemType: models.ItemTypeGossip, ItemID: g.ID}).Error)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{g.ID}, got.Gossips)
	assert.Equal(t, []uint{c.ID}, got.Comments)
	assert.Equal(t, []uint{g.ID}, got.LikedGossips)
	assert.Empty(t, got.LikedComments)
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	_, err := repo.GetByID(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, 404, models.StatusForError(err))
}

func TestUserRepository_List_Paginates(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, db, "a@example.com")
	createTestUser(t, db, "b@example.com")
	createTestUser(t, db, "c@example.com")

	page, err := repo.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Items, 2)

	page2, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1)
}
