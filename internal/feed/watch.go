package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"inkwell/internal/notifications"

	"github.com/gorilla/websocket"
)

// Dial opens the notification channel, authenticated when a credential is held.
func (c *Client) Dial(ctx context.Context) (*websocket.Conn, error) {
	u := c.BaseURL()
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"

	header := http.Header{}
	if token := c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrTransient, u.Redacted(), err)
	}
	return conn, nil
}

// Follow joins room on conn and refreshes the blog collection on every blog
// event until ctx is done or the connection drops. It closes conn.
func (p *Provider) Follow(ctx context.Context, conn *websocket.Conn, room string) error {
	defer func() { _ = conn.Close() }()

	if room == "" {
		room = notifications.FeedRoom
	}
	if err := conn.WriteJSON(map[string]string{"type": "join", "room": room}); err != nil {
		return fmt.Errorf("join %s: %w", room, err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	defer stop()

	for {
		var ev notifications.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: read: %v", ErrTransient, err)
		}

		switch {
		case ev.Type == "error":
			p.log.WarnContext(ctx, "notification channel error", slog.Any("payload", ev.Payload))
		case strings.HasPrefix(ev.Type, "blog."):
			p.Refresh(ctx)
		}
	}
}
