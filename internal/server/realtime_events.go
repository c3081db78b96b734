package server

import (
	"context"
	"errors"
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
)

// Event type constants prevent typos in event names.
const (
	EventBlogCreated = notifications.EventBlogCreated
	EventBlogUpdated = notifications.EventBlogUpdated
	EventBlogDeleted = notifications.EventBlogDeleted
)

// publishBlogEvent notifies the feed room and the blog's category room.
// Delivery is best effort; failures are logged and never fail the request.
func (s *Server) publishBlogEvent(ctx context.Context, eventType string, blog *models.Blog) {
	if s.notifications == nil || blog == nil {
		return
	}
	payload := blogSummary(blog)
	for _, room := range []string{notifications.FeedRoom, notifications.CategoryRoom(blog.Category)} {
		err := s.notifications.Emit(ctx, room, eventType, payload)
		if err != nil && !errors.Is(err, notifications.ErrInvalidRoom) {
			middleware.Logger.WarnContext(ctx, "failed to publish blog event",
				slog.String("event", eventType),
				slog.String("room", room),
				slog.String("error", err.Error()),
			)
		}
	}
}

func blogSummary(blog *models.Blog) map[string]interface{} {
	return map[string]interface{}{
		"_id":        blog.ID,
		"title":      blog.Title,
		"slug":       blog.Slug,
		"category":   blog.Category,
		"writerName": blog.WriterName,
		"createdBy":  blog.CreatedBy,
		"createdAt":  blog.CreatedAt,
	}
}
