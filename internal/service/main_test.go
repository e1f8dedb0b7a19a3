package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"grapevine/internal/models"
	"grapevine/internal/repository"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.Equal(t, 400, models.StatusForError(err))
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err)
	assert.Equal(t, 403, models.StatusForError(err))
}

// engineStub is a stub for IntegrityEngine.
type engineStub struct {
	attachGossipFn  func(context.Context, *models.Gossip) error
	attachCommentFn func(context.Context, *models.Comment) error
	likeFn          func(context.Context, uint, models.ItemType, uint) ([]uint, error)
	unlikeFn        func(context.Context, uint, models.ItemType, uint) ([]uint, error)
	likesFn         func(context.Context, models.ItemType, uint) ([]uint, error)
	deleteGossipFn  func(context.Context, uint) error
	deleteCommentFn func(context.Context, uint) error
	deleteUserFn    func(context.Context, uint) error
}

func (s *engineStub) AttachGossip(ctx context.Context, g *models.Gossip) error {
	return s.attachGossipFn(ctx, g)
}
func (s *engineStub) AttachComment(ctx context.Context, c *models.Comment) error {
	return s.attachCommentFn(ctx, c)
}
func (s *engineStub) Like(ctx context.Context, userID uint, it models.ItemType, id uint) ([]uint, error) {
	return s.likeFn(ctx, userID, it, id)
}
func (s *engineStub) Unlike(ctx context.Context, userID uint, it models.ItemType, id uint) ([]uint, error) {
	return s.unlikeFn(ctx, userID, it, id)
}
func (s *engineStub) Likes(ctx context.Context, it models.ItemType, id uint) ([]uint, error) {
	return s.likesFn(ctx, it, id)
}
func (s *engineStub) DeleteGossip(ctx context.Context, id uint) error  { return s.deleteGossipFn(ctx, id) }
func (s *engineStub) DeleteComment(ctx context.Context, id uint) error { return s.deleteCommentFn(ctx, id) }
func (s *engineStub) DeleteUser(ctx context.Context, id uint) error    { return s.deleteUserFn(ctx, id) }

func noopEngine() *engineStub {
	return &engineStub{
		attachGossipFn: func(_ context.Context, g *models.Gossip) error {
			g.ID = 1
			return nil
		},
		attachCommentFn: func(_ context.Context, c *models.Comment) error {
			c.ID = 1
			return nil
		},
		likeFn: func(_ context.Context, userID uint, _ models.ItemType, _ uint) ([]uint, error) {
			return []uint{userID}, nil
		},
		unlikeFn: func(_ context.Context, _ uint, _ models.ItemType, _ uint) ([]uint, error) {
			return []uint{}, nil
		},
		likesFn: func(_ context.Context, _ models.ItemType, _ uint) ([]uint, error) {
			return []uint{}, nil
		},
		deleteGossipFn:  func(_ context.Context, _ uint) error { return nil },
		deleteCommentFn: func(_ context.Context, _ uint) error { return nil },
		deleteUserFn:    func(_ context.Context, _ uint) error { return nil },
	}
}

// gossipRepoStub is a stub for repository.GossipRepository.
type gossipRepoStub struct {
	getByIDFn func(context.Context, uint, uint) (*models.Gossip, error)
	listFn    func(context.Context, repository.GossipListParams, uint) (*models.Page[*models.Gossip], error)
	updateFn  func(context.Context, *models.Gossip) error
}

func (s *gossipRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Gossip, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *gossipRepoStub) List(ctx context.Context, params repository.GossipListParams, currentUserID uint) (*models.Page[*models.Gossip], error) {
	return s.listFn(ctx, params, currentUserID)
}
func (s *gossipRepoStub) Update(ctx context.Context, g *models.Gossip) error {
	return s.updateFn(ctx, g)
}

func noopGossipRepo() *gossipRepoStub {
	return &gossipRepoStub{
		getByIDFn: func(_ context.Context, id, _ uint) (*models.Gossip, error) {
			return &models.Gossip{ID: id, Title: "t", Content: "c", AuthorID: 1}, nil
		},
		listFn: func(_ context.Context, params repository.GossipListParams, _ uint) (*models.Page[*models.Gossip], error) {
			return models.NewPage([]*models.Gossip{}, 0, params.Page, params.Limit), nil
		},
		updateFn: func(_ context.Context, _ *models.Gossip) error { return nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	getByIDFn      func(context.Context, uint) (*models.Comment, error)
	listByGossipFn func(context.Context, uint, int, int) (*models.Page[*models.Comment], error)
}

func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByGossip(ctx context.Context, gossipID uint, page, limit int) (*models.Page[*models.Comment], error) {
	return s.listByGossipFn(ctx, gossipID, page, limit)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, Content: "hello", AuthorID: 1, GossipID: 1}, nil
		},
		listByGossipFn: func(_ context.Context, _ uint, page, limit int) (*models.Page[*models.Comment], error) {
			return models.NewPage([]*models.Comment{}, 0, page, limit), nil
		},
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	createFn     func(context.Context, *models.User) error
	updateFn     func(context.Context, *models.User) error
	listFn       func(context.Context, int, int) (*models.Page[models.User], error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) List(ctx context.Context, page, limit int) (*models.Page[models.User], error) {
	return s.listFn(ctx, page, limit)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, FirstName: "A", LastName: "B", Email: "a@b.c", Role: models.RoleBasic}, nil
		},
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:     func(_ context.Context, _ *models.User) error { return nil },
		updateFn:     func(_ context.Context, _ *models.User) error { return nil },
		listFn: func(_ context.Context, page, limit int) (*models.Page[models.User], error) {
			return models.NewPage([]models.User{}, 0, page, limit), nil
		},
	}
}

// memStore is an in-memory storage.ObjectStore for tests.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) Store(_ context.Context, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	ref := "obj-" + string(rune('a'+s.n))
	s.objects[ref] = data
	return ref, nil
}

func (s *memStore) URLFor(ref string) string {
	if ref == "" {
		return ""
	}
	return "http://test/uploads/" + ref
}

func (s *memStore) Remove(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, ref)
	return nil
}

func testImageService() *ImageService {
	return NewImageService(newMemStore())
}

// noIsAdmin is an isAdmin lookup that always says no.
func noIsAdmin(_ context.Context, _ uint) (bool, error) { return false, nil }

// yesIsAdmin is an isAdmin lookup that always says yes.
func yesIsAdmin(_ context.Context, _ uint) (bool, error) { return true, nil }
