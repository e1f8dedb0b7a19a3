package server

import (
	"grapevine/internal/models"
	"grapevine/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateComment handles POST /gossips/create/:gossipId/comment. An optional
// parentId makes it a reply; replies to replies attach to the top-level
// parent so threads never nest deeper than one level.
func (s *Server) CreateComment(c *fiber.Ctx) error {
	gossipID, err := s.parseID(c, "gossipId")
	if err != nil {
		return nil
	}

	var req struct {
		Content  string `json:"content"`
		ParentID *uint  `json:"parentId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.commentService.CreateComment(c.Context(), service.CreateCommentInput{
		UserID:   currentUserID(c),
		GossipID: gossipID,
		ParentID: req.ParentID,
		Content:  req.Content,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments handles GET /gossips/get/:gossipId/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	gossipID, err := s.parseID(c, "gossipId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)

	comments, err := s.commentService.ListComments(c.Context(), gossipID, page.Page, page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(comments)
}

// DeleteComment handles DELETE /gossips/delete/comment/:commentId. Replies
// cascade away with their parent.
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}

	comment, err := s.commentService.DeleteComment(c.Context(), service.DeleteCommentInput{
		UserID:    currentUserID(c),
		CommentID: commentID,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(comment)
}
