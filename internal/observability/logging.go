package observability

import (
	"context"
	"log/slog"
)

// WSLogger provides structured logging for notification channel events.
type WSLogger struct {
	hubName string
	logger  *slog.Logger
}

// NewWSLogger creates a WSLogger; a nil logger falls back to slog.Default.
func NewWSLogger(hubName string, logger *slog.Logger) *WSLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSLogger{hubName: hubName, logger: logger}
}

// LogConnect logs a new connection.
func (l *WSLogger) LogConnect(ctx context.Context, connID, userID string) {
	l.logger.InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hubName),
		slog.String("conn_id", connID),
		slog.String("user_id", userID),
	)
}

// LogDisconnect logs a closed connection and the room it left, if any.
func (l *WSLogger) LogDisconnect(ctx context.Context, connID, userID, roomID string) {
	l.logger.InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hubName),
		slog.String("conn_id", connID),
		slog.String("user_id", userID),
		slog.String("room_id", roomID),
	)
}

// LogJoin logs a room change.
func (l *WSLogger) LogJoin(ctx context.Context, connID, fromRoom, toRoom string) {
	l.logger.InfoContext(ctx, "websocket joined room",
		slog.String("hub", l.hubName),
		slog.String("conn_id", connID),
		slog.String("from_room", fromRoom),
		slog.String("room_id", toRoom),
	)
}

// LogError logs a channel error.
func (l *WSLogger) LogError(ctx context.Context, connID string, err error, eventType string) {
	l.logger.ErrorContext(ctx, "websocket error",
		slog.String("hub", l.hubName),
		slog.String("conn_id", connID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}
