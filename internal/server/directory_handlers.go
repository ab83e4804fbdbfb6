package server

import (
	"localmade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetDirectory handles GET /api/directory: all public profiles joined with
// their posts. One call per page view, no retry logic here.
func (s *Server) GetDirectory(c *fiber.Ctx) error {
	entries, err := s.directoryService.ListPublicProfiles(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"artists": entries})
}
