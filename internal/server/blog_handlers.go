package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetAllBlogs handles GET /api/blogs/all-blogs
// @Summary List blogs
// @Description Newest first. category narrows the list to one normalized category.
// @Tags blogs
// @Produce json
// @Param category query string false "Category name"
// @Success 200 {object} object{blogs=[]models.Blog}
// @Router /blogs/all-blogs [get]
func (s *Server) GetAllBlogs(c *fiber.Ctx) error {
	blogs, err := s.blogService.ListBlogs(c.UserContext(), c.Query("category"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"blogs": blogs})
}

// GetSingleBlog handles GET /api/blogs/single-blog/:id
// @Summary Get a blog
// @Tags blogs
// @Produce json
// @Param id path string true "Blog ID"
// @Success 200 {object} models.Blog
// @Failure 404 {object} models.ErrorResponse
// @Router /blogs/single-blog/{id} [get]
func (s *Server) GetSingleBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	blog, err := s.blogService.GetBlog(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(blog)
}

// GetMyBlogs handles GET /api/blogs/my-blog
// @Summary Blogs written by the current user
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{blogs=[]models.Blog}
// @Failure 403 {object} models.ErrorResponse
// @Router /blogs/my-blog [get]
func (s *Server) GetMyBlogs(c *fiber.Ctx) error {
	blogs, err := s.blogService.MyBlogs(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"blogs": blogs})
}

// CreateBlog handles POST /api/blogs/create
// @Summary Publish a blog
// @Tags blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.NewBlogInput true "Blog"
// @Success 201 {object} models.Blog
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /blogs/create [post]
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	var req models.NewBlogInput
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	blog, err := s.blogService.CreateBlog(c.UserContext(), service.CreateBlogInput{
		UserID:       currentUserID(c),
		NewBlogInput: req,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	s.publishBlogEvent(c.UserContext(), EventBlogCreated, blog)
	return c.Status(fiber.StatusCreated).JSON(blog)
}

// UpdateBlog handles PUT /api/blogs/update/:id
// @Summary Edit a blog
// @Tags blogs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Param request body models.BlogUpdate true "Fields to change"
// @Success 200 {object} models.Blog
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blogs/update/{id} [put]
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req models.BlogUpdate
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	blog, err := s.blogService.UpdateBlog(c.UserContext(), service.UpdateBlogInput{
		UserID:     currentUserID(c),
		BlogID:     id,
		BlogUpdate: req,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	s.publishBlogEvent(c.UserContext(), EventBlogUpdated, blog)
	return c.JSON(blog)
}

// DeleteBlog handles DELETE /api/blogs/delete/:id
// @Summary Delete a blog
// @Tags blogs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Blog ID"
// @Success 200 {object} object{message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /blogs/delete/{id} [delete]
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}

	blog, err := s.blogService.DeleteBlog(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return models.Respond(c, err)
	}

	s.publishBlogEvent(c.UserContext(), EventBlogDeleted, blog)
	return c.JSON(fiber.Map{"message": "Blog deleted successfully"})
}
