package seed

import (
	"context"
	"errors"
	"fmt"
	"log"

	"grapevine/internal/integrity"
	"grapevine/internal/middleware"
	"grapevine/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers   int
	NumGossips int
	Clean      bool
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	engine  *integrity.Engine
	factory *Factory
}

// NewSeeder creates a seeder with its own engine instance.
func NewSeeder(db *gorm.DB) *Seeder {
	engine := integrity.NewEngine(db, middleware.Logger)
	return &Seeder{db: db, engine: engine, factory: NewFactory(db, engine)}
}

// ClearAll removes all seeded data. Table order does not matter since the
// ref tables carry no database-level foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.Like{},
		&models.LikedRef{},
		&models.AuthoredRef{},
		&models.GossipCommentRef{},
		&models.Comment{},
		&models.Gossip{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Unscoped().Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clear table %T: %w", table, err)
		}
	}
	return nil
}

// Run populates the database: users, gossips, threaded comments and likes,
// all attached through the engine so every mirrored set stays consistent.
func (s *Seeder) Run(ctx context.Context, opts Options) error {
	if opts.Clean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	log.Printf("Seeding %d users and %d gossips...", opts.NumUsers, opts.NumGossips)

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, user)
	}
	if len(users) == 0 {
		return fmt.Errorf("cannot seed gossips without users")
	}

	gossips := make([]*models.Gossip, 0, opts.NumGossips)
	for i := 0; i < opts.NumGossips; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		gossip, err := s.factory.CreateGossip(ctx, author)
		if err != nil {
			return fmt.Errorf("failed to create gossip: %w", err)
		}
		gossips = append(gossips, gossip)
	}

	comments, err := s.seedComments(ctx, users, gossips)
	if err != nil {
		return err
	}
	likes, err := s.seedLikes(ctx, users, gossips, comments)
	if err != nil {
		return err
	}

	log.Printf("Seeded %d users, %d gossips, %d comments, %d likes",
		len(users), len(gossips), len(comments), likes)
	return nil
}

// seedComments creates a few comments per gossip, with roughly a third of
// them replies to an earlier comment on the same gossip.
func (s *Seeder) seedComments(ctx context.Context, users []*models.User, gossips []*models.Gossip) ([]*models.Comment, error) {
	var comments []*models.Comment
	for _, gossip := range gossips {
		byGossip := make([]*models.Comment, 0, 4)
		for i := 0; i < s.factory.rng.Intn(5); i++ {
			author := users[s.factory.rng.Intn(len(users))]

			var parentID *uint
			if len(byGossip) > 0 && s.factory.rng.Intn(3) == 0 {
				parentID = &byGossip[s.factory.rng.Intn(len(byGossip))].ID
			}

			comment, err := s.factory.CreateComment(ctx, author, gossip.ID, parentID)
			if err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			byGossip = append(byGossip, comment)
		}
		comments = append(comments, byGossip...)
	}
	return comments, nil
}

// seedLikes sprinkles likes over gossips and comments. Duplicate picks are
// expected and simply skipped on conflict.
func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, gossips []*models.Gossip, comments []*models.Comment) (int, error) {
	likes := 0
	attempt := func(userID uint, itemType models.ItemType, itemID uint) error {
		_, err := s.engine.Like(ctx, userID, itemType, itemID)
		if err != nil {
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeConflict {
				return nil
			}
			return err
		}
		likes++
		return nil
	}

	for _, gossip := range gossips {
		for i := 0; i < s.factory.rng.Intn(len(users)+1); i++ {
			user := users[s.factory.rng.Intn(len(users))]
			if err := attempt(user.ID, models.ItemTypeGossip, gossip.ID); err != nil {
				return likes, fmt.Errorf("failed to like gossip: %w", err)
			}
		}
	}
	for _, comment := range comments {
		if s.factory.rng.Intn(2) == 0 {
			user := users[s.factory.rng.Intn(len(users))]
			if err := attempt(user.ID, models.ItemTypeComment, comment.ID); err != nil {
				return likes, fmt.Errorf("failed to like comment: %w", err)
			}
		}
	}
	return likes, nil
}

// EnsureAdmin creates or promotes the admin account used by operators.
func EnsureAdmin(db *gorm.DB, email, password string) error {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		return db.Model(&existing).Update("role", models.RoleAdmin).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		return db.Create(&models.User{
			FirstName: "Admin",
			LastName:  "User",
			Email:     email,
			Password:  string(hash),
			Role:      models.RoleAdmin,
			Verified:  true,
		}).Error
	default:
		return err
	}
}
