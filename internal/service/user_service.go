package service

import (
	"context"
	"log/slog"

	"grapevine/internal/cache"
	"grapevine/internal/models"
	"grapevine/internal/repository"
	"grapevine/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// SessionRevoker ends every session a user holds. Account deletion refuses
// to proceed when revocation fails.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uint) error
}

type UserService struct {
	userRepo repository.UserRepository
	engine   IntegrityEngine
	images   *ImageService
	sessions SessionRevoker
	logger   *slog.Logger
}

type UpdateUserInput struct {
	ActorID   uint
	UserID    uint
	FirstName *string
	LastName  *string
	About     *string
	Password  *string
	Avatar    []byte
}

type DeleteUserInput struct {
	ActorID uint
	UserID  uint
}

func NewUserService(
	userRepo repository.UserRepository,
	engine IntegrityEngine,
	images *ImageService,
	sessions SessionRevoker,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		engine:   engine,
		images:   images,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Avatar = s.images.URLFor(user.Avatar)
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, page, limit int) (*models.Page[models.User], error) {
	result, err := s.userRepo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	for i := range result.Items {
		result.Items[i].Avatar = s.images.URLFor(result.Items[i].Avatar)
	}
	return result, nil
}

// IsAdmin reports whether the user holds the admin role. Wired into the
// other services' ownership checks.
func (s *UserService) IsAdmin(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

func (s *UserService) UpdateUser(ctx context.Context, in UpdateUserInput) (*models.User, error) {
	if err := s.authorize(ctx, in.UserID, in.ActorID, "You can only update your own profile"); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		if err := validation.ValidateName("first name", *in.FirstName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		if err := validation.ValidateName("last name", *in.LastName); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		user.LastName = *in.LastName
	}
	if in.About != nil {
		if len(*in.About) > 1000 {
			return nil, models.NewValidationError("About must not exceed 1000 characters")
		}
		user.About = *in.About
	}
	if in.Password != nil {
		if err := validation.ValidatePassword(*in.Password); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			return nil, models.NewInternalError(hashErr)
		}
		user.Password = string(hash)
	}

	oldAvatar := ""
	if len(in.Avatar) > 0 {
		ref, imgErr := s.images.Process(ctx, in.Avatar)
		if imgErr != nil {
			return nil, imgErr
		}
		oldAvatar = user.Avatar
		user.Avatar = ref
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	if oldAvatar != "" {
		if rmErr := s.images.Remove(ctx, oldAvatar); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove replaced avatar",
				slog.String("ref", oldAvatar), slog.String("error", rmErr.Error()))
		}
	}

	return s.GetUser(ctx, user.ID)
}

// DeleteUser revokes every session first, then runs the cascading deletion.
// If session revocation fails the account stays; deleting the data while a
// live token still works would be worse than failing loudly.
func (s *UserService) DeleteUser(ctx context.Context, in DeleteUserInput) error {
	if err := s.authorize(ctx, in.UserID, in.ActorID, "You can only delete your own account"); err != nil {
		return err
	}

	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return err
	}

	if err := s.sessions.RevokeAllForUser(ctx, in.UserID); err != nil {
		return err
	}

	if err := s.engine.DeleteUser(ctx, in.UserID); err != nil {
		return err
	}

	cache.InvalidateUser(ctx, in.UserID)

	if user.Avatar != "" {
		if rmErr := s.images.Remove(ctx, user.Avatar); rmErr != nil {
			s.logger.WarnContext(ctx, "failed to remove deleted user's avatar",
				slog.String("ref", user.Avatar), slog.String("error", rmErr.Error()))
		}
	}
	return nil
}

// authorize allows the user themselves or an admin actor.
func (s *UserService) authorize(ctx context.Context, targetID, actorID uint, denied string) error {
	if targetID == actorID {
		return nil
	}
	admin, err := s.IsAdmin(ctx, actorID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewForbiddenError(denied)
	}
	return nil
}
