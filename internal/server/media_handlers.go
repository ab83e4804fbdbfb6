package server

import (
	"errors"
	"strings"

	"localmade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetPostImage handles GET /media/posts/:user/:file. The blob is downloaded
// at read time; clients cache the bytes if they want to avoid refetching.
// Both the JPEG master and its WebP rendition are addressable by key.
func (s *Server) GetPostImage(c *fiber.Ctx) error {
	key := c.Params("user") + "/" + c.Params("file")
	data, err := s.postService.ResolveImage(c.UserContext(), key)
	if err != nil {
		return respondMediaError(c, err)
	}
	c.Set(fiber.HeaderContentType, imageContentType(key))
	return c.Send(data)
}

// GetAvatarImage handles GET /media/avatars/:user/:file.
func (s *Server) GetAvatarImage(c *fiber.Ctx) error {
	key := c.Params("user") + "/" + c.Params("file")
	data, err := s.accountService.ResolveAvatar(c.UserContext(), key)
	if err != nil {
		return respondMediaError(c, err)
	}
	c.Set(fiber.HeaderContentType, imageContentType(key))
	return c.Send(data)
}

func imageContentType(key string) string {
	if strings.HasSuffix(key, ".webp") {
		return "image/webp"
	}
	return "image/jpeg"
}

func respondMediaError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
		return models.RespondWithError(c, fiber.StatusNotFound, appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError, err)
}
