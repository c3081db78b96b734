package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/my-profile
// @Summary Current user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /users/my-profile [get]
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.authService.CurrentUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/my-profile
// @Summary Update current user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/my-profile [put]
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req models.ProfileUpdate
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:        currentUserID(c),
		ProfileUpdate: req,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// RequestPhotoUpload handles POST /api/users/my-profile/photo
// @Summary Presign a profile photo upload
// @Description Returns a URL the client PUTs the image to; the profile photo points at it afterwards
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{filename=string} true "Original file name"
// @Success 200 {object} storage.PresignedUpload
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /users/my-profile/photo [post]
func (s *Server) RequestPhotoUpload(c *fiber.Ctx) error {
	var req struct {
		Filename string `json:"filename"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	upload, err := s.userService.RequestPhotoUpload(c.UserContext(), service.PhotoUploadInput{
		UserID:   currentUserID(c),
		Filename: req.Filename,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(upload)
}

// GetWriters handles GET /api/users/writers
// @Summary List writers
// @Tags users
// @Produce json
// @Success 200 {object} object{writers=[]models.User}
// @Router /users/writers [get]
func (s *Server) GetWriters(c *fiber.Ctx) error {
	writers, err := s.userService.Writers(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"writers": writers})
}
