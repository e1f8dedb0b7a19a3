package server

import (
	"grapevine/internal/models"
	"grapevine/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateGossip handles POST /gossips/create (multipart; optional image file)
func (s *Server) CreateGossip(c *fiber.Ctx) error {
	image, err := formFile(c, "image")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	gossip, err := s.gossipService.CreateGossip(c.Context(), service.CreateGossipInput{
		UserID:  currentUserID(c),
		Title:   c.FormValue("title"),
		Content: c.FormValue("content"),
		Image:   image,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(gossip)
}

// GetGossips handles GET /gossips/get
func (s *Server) GetGossips(c *fiber.Ctx) error {
	userID, _ := s.optionalUserID(c)
	params := parseGossipListParams(c)

	page, err := s.gossipService.ListGossips(c.Context(), params, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(page)
}

// GetGossip handles GET /gossips/get/:gossipId
func (s *Server) GetGossip(c *fiber.Ctx) error {
	gossipID, err := s.parseID(c, "gossipId")
	if err != nil {
		return nil
	}
	userID, _ := s.optionalUserID(c)

	gossip, err := s.gossipService.GetGossip(c.Context(), gossipID, userID)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(gossip)
}

// UpdateGossip handles PATCH /gossips/update/:gossipId (multipart; optional image file)
func (s *Server) UpdateGossip(c *fiber.Ctx) error {
	gossipID, err := s.parseID(c, "gossipId")
	if err != nil {
		return nil
	}

	in := service.UpdateGossipInput{
		UserID:   currentUserID(c),
		GossipID: gossipID,
	}
	if v := c.FormValue("title"); v != "" {
		in.Title = &v
	}
	if v := c.FormValue("content"); v != "" {
		in.Content = &v
	}

	image, err := formFile(c, "image")
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	in.Image = image

	gossip, err := s.gossipService.UpdateGossip(c.Context(), in)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	return c.JSON(gossip)
}

// DeleteGossip handles DELETE /gossips/delete/:gossipId. Comments, likes and
// every mirrored reference cascade away with the gossip.
func (s *Server) DeleteGossip(c *fiber.Ctx) error {
	gossipID, err := s.parseID(c, "gossipId")
	if err != nil {
		return nil
	}

	gossip, deleteErr := s.gossipService.DeleteGossip(c.Context(), service.DeleteGossipInput{
		UserID:   currentUserID(c),
		GossipID: gossipID,
	})
	if deleteErr != nil {
		return models.RespondWithAppError(c, deleteErr)
	}

	return c.JSON(gossip)
}
