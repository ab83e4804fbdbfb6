package server

import (
	"errors"
	"io"

	"localmade/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetAccount handles GET /api/account. It hydrates the account screen:
// editable profile fields (blank when no row exists yet) and the post list.
func (s *Server) GetAccount(c *fiber.Ctx) error {
	state, err := s.accountService.Hydrate(c.UserContext(), sessionUserID(c))
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(state)
}

// UpdateProfile handles PUT /api/account/profile. The body carries the full
// field set; omitted optional fields become NULL, matching the form state.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var fields models.ProfileFields
	if err := c.BodyParser(&fields); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	status, err := s.accountService.SubmitProfile(c.UserContext(), sessionUserID(c), fields)
	if err != nil {
		return respondActionError(c, err)
	}
	return c.JSON(status)
}

// CreatePost handles POST /api/account/posts (multipart: image + caption).
func (s *Server) CreatePost(c *fiber.Ctx) error {
	caption := c.FormValue("caption")
	imageBytes, ext, err := formImage(c, "image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("You must select an image to upload."))
	}

	status, err := s.accountService.SubmitPost(c.UserContext(), sessionUserID(c), imageBytes, ext, caption)
	if err != nil {
		return respondActionError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(status)
}

// DeletePost handles DELETE /api/account/posts/:id.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	status, err := s.accountService.DeletePost(c.UserContext(), sessionUserID(c), c.Params("id"))
	if err != nil {
		if errors.Is(err, models.ErrPostNotFound) {
			return models.RespondWithError(c, fiber.StatusNotFound,
				models.NewNotFoundError("Post", c.Params("id")))
		}
		return respondActionError(c, err)
	}
	return c.JSON(status)
}

// UploadAvatar handles POST /api/account/avatar (multipart: image).
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	imageBytes, ext, err := formImage(c, "image")
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("You must select an image to upload."))
	}

	status, err := s.accountService.SubmitAvatar(c.UserContext(), sessionUserID(c), imageBytes, ext)
	if err != nil {
		return respondActionError(c, err)
	}
	return c.JSON(status)
}

func respondActionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, models.ErrActionInFlight) {
		return models.RespondWithError(c, fiber.StatusConflict,
			models.NewConflictError("Another action is still in progress"))
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}
	return models.RespondWithError(c, fiber.StatusInternalServerError,
		models.NewInternalError(err))
}

// formImage reads a multipart image field and its extension.
func formImage(c *fiber.Ctx, field string) ([]byte, string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, fileExt(header.Filename), nil
}

func fileExt(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i+1:]
		}
	}
	return ""
}
