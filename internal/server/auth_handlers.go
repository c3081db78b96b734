package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// LoginRequest accepts an email or phone number as identifier. Email and
// Phone are accepted as aliases of Identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Password   string `json:"password"`
}

func (r LoginRequest) identifier() string {
	switch {
	case r.Identifier != "":
		return r.Identifier
	case r.Email != "":
		return r.Email
	default:
		return r.Phone
	}
}

// Register handles POST /api/users/register
// @Summary Register
// @Description Create an account and start a session
// @Tags users
// @Accept json
// @Produce json
// @Param request body models.NewUserInput true "Registration payload"
// @Success 201 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.NewUserInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Register(c.UserContext(), req)
	if err != nil {
		return models.Respond(c, err)
	}
	return s.startSession(c, fiber.StatusCreated, session)
}

// Login handles POST /api/users/login
// @Summary Login
// @Description Authenticate with email or phone and password
// @Tags users
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	session, err := s.authService.Login(c.UserContext(), req.identifier(), req.Password)
	if err != nil {
		return models.Respond(c, err)
	}
	return s.startSession(c, fiber.StatusOK, session)
}

func (s *Server) startSession(c *fiber.Ctx, status int, session *service.Session) error {
	middleware.SetAuthCookie(c, session.Token, s.authService.TokenTTL(), s.config.CookieSecure)
	return c.Status(status).JSON(SessionResponse{Token: session.Token, User: session.User})
}

// Logout handles GET and POST /api/users/logout
// @Summary Logout
// @Description Clear the session cookie and revoke the token. Always succeeds.
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /users/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	s.authService.Logout(c.UserContext(), middleware.BearerToken(c))
	middleware.ClearAuthCookie(c, s.config.CookieSecure)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}
