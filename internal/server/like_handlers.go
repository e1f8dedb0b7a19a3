package server

import (
	"grapevine/internal/models"
	"grapevine/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetLikes handles GET /likes/:itemId/get?itemType=Gossip|Comment
func (s *Server) GetLikes(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "itemId")
	if err != nil {
		return nil
	}

	likes, err := s.likeService.GetLikes(c.Context(), c.Query("itemType"), itemID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"likes": likes,
	})
}

// Like handles POST /likes/:itemId/like?itemType=Gossip|Comment. Liking the
// same item twice is a 409.
func (s *Server) Like(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "itemId")
	if err != nil {
		return nil
	}

	likes, err := s.likeService.Like(c.Context(), service.LikeInput{
		UserID:   currentUserID(c),
		ItemType: c.Query("itemType"),
		ItemID:   itemID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"likes": likes,
	})
}

// Unlike handles DELETE /likes/:itemId/unlike?itemType=Gossip|Comment.
// Unliking something never liked is a 409.
func (s *Server) Unlike(c *fiber.Ctx) error {
	itemID, err := s.parseID(c, "itemId")
	if err != nil {
		return nil
	}

	likes, err := s.likeService.Unlike(c.Context(), service.LikeInput{
		UserID:   currentUserID(c),
		ItemType: c.Query("itemType"),
		ItemID:   itemID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(fiber.Map{
		"likes": likes,
	})
}
