package server

import (
	"errors"

	"localmade/internal/auth"
	"localmade/internal/models"
	"localmade/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp handles POST /api/auth/signup.
// Validation failures return their specific message; everything else is the
// generic signup failure.
func (s *Server) SignUp(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	session, err := s.sessions.SignUp(c.UserContext(), req.Email, req.Password)
	switch {
	case errors.Is(err, validation.ErrInvalidEmail), errors.Is(err, validation.ErrPasswordTooShort):
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
	case err != nil:
		return models.RespondWithError(c, fiber.StatusConflict, models.NewConflictError(err.Error()))
	}

	return c.Status(fiber.StatusCreated).JSON(session)
}

// SignIn handles POST /api/auth/login.
func (s *Server) SignIn(c *fiber.Ctx) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	session, err := s.sessions.SignInWithPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError(err.Error()))
	}
	return c.JSON(session)
}

// SignOut handles POST /api/auth/logout.
func (s *Server) SignOut(c *fiber.Ctx) error {
	s.sessions.SignOut(c.UserContext())
	return c.JSON(fiber.Map{"status": "signed out"})
}

// GetSession handles GET /api/auth/session. Clients use it to decide
// between the login and account views.
func (s *Server) GetSession(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("No session"))
	}
	session, err := s.sessions.GetSession(token)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("No session"))
	}
	return c.JSON(session)
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// sessionUserID returns the authenticated user's ID set by AuthRequired.
func sessionUserID(c *fiber.Ctx) string {
	if s, ok := c.Locals("session").(*auth.Session); ok {
		return s.UserID
	}
	if id, ok := c.Locals("userID").(string); ok {
		return id
	}
	return ""
}
