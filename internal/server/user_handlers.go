package server

import (
	"grapevine/internal/models"
	"grapevine/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetUsers handles GET /users/get
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 10)

	users, err := s.userService.ListUsers(c.Context(), page.Page, page.Limit)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(users)
}

// GetUser handles GET /users/get/:userId. The response carries the user's
// authored and liked id sets.
func (s *Server) GetUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	user, err := s.userService.GetUser(c.Context(), userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// UpdateUser handles PATCH /users/update/:userId (multipart; optional avatar file)
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	in := service.UpdateUserInput{
		ActorID: currentUserID(c),
		UserID:  userID,
	}
	if v := c.FormValue("first_name"); v != "" {
		in.FirstName = &v
	}
	if v := c.FormValue("last_name"); v != "" {
		in.LastName = &v
	}
	if form, formErr := c.MultipartForm(); formErr == nil {
		// About may legitimately be cleared, so presence matters, not value.
		if vals, ok := form.Value["about"]; ok && len(vals) > 0 {
			in.About = &vals[0]
		}
	}
	if v := c.FormValue("password"); v != "" {
		in.Password = &v
	}

	avatar, err := formFile(c, "avatar")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	in.Avatar = avatar

	user, err := s.userService.UpdateUser(c.Context(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(user)
}

// DeleteUser handles DELETE /users/delete/:userId. Sessions are revoked and
// every authored gossip, comment and like cascades away.
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	deleteErr := s.userService.DeleteUser(c.Context(), service.DeleteUserInput{
		ActorID: currentUserID(c),
		UserID:  userID,
	})
	if deleteErr != nil {
		return models.RespondWithAppError(c, deleteErr)
	}

	if userID == currentUserID(c) {
		s.clearRefreshCookie(c)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
