package repository

import (
	"testing"

	"grapevine/internal/database"
	"grapevine/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh in-memory database with the full schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass!"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleBasic,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTestGossip(t *testing.T, db *gorm.DB, authorID uint, title string) *models.Gossip {
	t.Helper()
	g := &models.Gossip{Title: title, Content: "content of " + title, AuthorID: authorID}
	require.NoError(t, db.Create(g).Error)
	return g
}

func createTestComment(t *testing.T, db *gorm.DB, authorID, gossipID uint) *models.Comment {
	t.Helper()
	c := &models.Comment{Content: "a comment", AuthorID: authorID, GossipID: gossipID}
	require.NoError(t, db.Create(c).Error)
	require.NoError(t, db.Create(&models.GossipCommentRef{GossipID: gossipID, CommentID: c.ID}).Error)
	return c
}
