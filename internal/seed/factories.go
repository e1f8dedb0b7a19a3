// Package seed provides database seeding utilities for development and
// testing. Everything goes through the integrity engine so the seeded data
// carries consistent reference sets.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"grapevine/internal/integrity"
	"grapevine/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Factory builds domain entities and persists them. It is a thin helper
// used by the seeder and by tests.
type Factory struct {
	db     *gorm.DB
	engine *integrity.Engine
	rng    *rand.Rand
}

// NewFactory creates a Factory bound to the provided DB and engine.
func NewFactory(db *gorm.DB, engine *integrity.Engine) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{db: db, engine: engine, rng: rand.New(rand.NewSource(seed))}
}

// CreateUser persists a fake user. All seeded users share the same password
// so demo logins stay easy.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("Password123!"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		FirstName: gofakeit.FirstName(),
		LastName:  gofakeit.LastName(),
		Email:     fmt.Sprintf("%s-%s", gofakeit.UUID()[:8], gofakeit.Email()),
		Password:  string(hash),
		About:     gofakeit.Sentence(12),
		Role:      models.RoleBasic,
		Verified:  f.rng.Intn(10) < 8,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateGossip persists a fake gossip through the engine, spreading
// creation times over the past weeks for realistic listings.
func (f *Factory) CreateGossip(ctx context.Context, author *models.User) (*models.Gossip, error) {
	gossip := &models.Gossip{
		Title:     gofakeit.Sentence(f.rng.Intn(5) + 3),
		Content:   gofakeit.Paragraph(1, 3, 8, "\n"),
		AuthorID:  author.ID,
		CreatedAt: f.pastTime(60),
	}
	if err := f.engine.AttachGossip(ctx, gossip); err != nil {
		return nil, err
	}
	return gossip, nil
}

// CreateComment persists a fake comment through the engine. A non-nil
// parent makes it a reply.
func (f *Factory) CreateComment(ctx context.Context, author *models.User, gossipID uint, parentID *uint) (*models.Comment, error) {
	comment := &models.Comment{
		Content:  gofakeit.Sentence(f.rng.Intn(15) + 3),
		AuthorID: author.ID,
		GossipID: gossipID,
		ParentID: parentID,
	}
	if err := f.engine.AttachComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func (f *Factory) pastTime(maxDays int) time.Time {
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	return time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour -
			time.Duration(hoursBack)*time.Hour -
			time.Duration(minsBack)*time.Minute)
}
