package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

type BlogService struct {
	blogs repository.BlogRepository
	users repository.UserRepository
}

func NewBlogService(blogs repository.BlogRepository, users repository.UserRepository) *BlogService {
	return &BlogService{blogs: blogs, users: users}
}

// ListBlogs returns every blog newest first, optionally narrowed to one
// normalized category.
func (s *BlogService) ListBlogs(ctx context.Context, category string) ([]models.Blog, error) {
	return s.blogs.List(ctx, repository.BlogFilter{Category: category})
}

func (s *BlogService) GetBlog(ctx context.Context, id string) (*models.Blog, error) {
	return s.blogs.GetByID(ctx, id)
}

// MyBlogs lists the blogs written by userID. Readers cannot publish and get
// Forbidden.
func (s *BlogService) MyBlogs(ctx context.Context, userID string) ([]models.Blog, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Role.CanPublish() {
		return nil, models.NewForbiddenError("Only writers and admins have blogs")
	}
	return s.blogs.ListByAuthor(ctx, user.ID)
}

type CreateBlogInput struct {
	UserID string
	models.NewBlogInput
}

func (s *BlogService) CreateBlog(ctx context.Context, in CreateBlogInput) (*models.Blog, error) {
	author, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	blog, err := models.NewBlog(in.NewBlogInput, author)
	if err != nil {
		return nil, err
	}
	if err := s.blogs.Create(ctx, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

type UpdateBlogInput struct {
	UserID string
	BlogID string
	models.BlogUpdate
}

func (s *BlogService) UpdateBlog(ctx context.Context, in UpdateBlogInput) (*models.Blog, error) {
	blog, err := s.authorize(ctx, in.UserID, in.BlogID)
	if err != nil {
		return nil, err
	}
	if err := in.Apply(blog); err != nil {
		return nil, err
	}
	if err := s.blogs.Update(ctx, blog); err != nil {
		return nil, err
	}
	return blog, nil
}

// DeleteBlog removes the blog and returns what was deleted.
func (s *BlogService) DeleteBlog(ctx context.Context, userID, blogID string) (*models.Blog, error) {
	blog, err := s.authorize(ctx, userID, blogID)
	if err != nil {
		return nil, err
	}
	if err := s.blogs.Delete(ctx, blog.ID); err != nil {
		return nil, err
	}
	return blog, nil
}

// authorize loads the blog and checks userID is its author or an admin.
func (s *BlogService) authorize(ctx context.Context, userID, blogID string) (*models.Blog, error) {
	blog, err := s.blogs.GetByID(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if blog.CreatedBy == userID {
		return blog, nil
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("You can only modify your own blogs")
	}
	return blog, nil
}
