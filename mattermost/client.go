/*
Package mattermost is the production chat transport.

PURPOSE:
  Wraps the official Mattermost client: outbound messages and file
  uploads through the REST API, inbound posts through the websocket
  event stream. Implements the bot package's Chat interface.

EVENT LOOP:
  Listen connects the websocket and re-dials with a fixed backoff when
  the connection drops. Only "posted" events from other users are
  forwarded; the bot's own posts are filtered by author id.

SEE ALSO:
  - bot/transport.go: the Chat interface this package satisfies
  - cmd/bot/main.go: wiring of Listen into the bot dispatcher
*/
package mattermost

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/model"
)

const reconnectDelay = 5 * time.Second

// Client talks to one Mattermost server with a bot account token.
type Client struct {
	api *model.Client4
	me  *model.User

	wsURL string
	token string

	// Channel types never change, so DM checks are answered from cache
	// after the first lookup.
	mu           sync.RWMutex
	channelTypes map[string]model.ChannelType
}

// NewClient connects to the server and verifies the bot token.
func NewClient(serverURL, token string) (*Client, error) {
	api := model.NewAPIv4Client(serverURL)
	api.SetToken(token)

	me, _, err := api.GetMe(context.Background(), "")
	if err != nil {
		return nil, fmt.Errorf("mattermost login: %w", err)
	}
	log.Printf("mattermost: connected as @%s (%s)", me.Username, me.Id)

	return &Client{
		api:          api,
		me:           me,
		wsURL:        websocketURL(serverURL),
		token:        token,
		channelTypes: make(map[string]model.ChannelType),
	}, nil
}

func websocketURL(serverURL string) string {
	switch {
	case strings.HasPrefix(serverURL, "https://"):
		return "wss://" + strings.TrimPrefix(serverURL, "https://")
	case strings.HasPrefix(serverURL, "http://"):
		return "ws://" + strings.TrimPrefix(serverURL, "http://")
	default:
		return "wss://" + serverURL
	}
}

// BotUserID returns the id of the bot account itself.
func (c *Client) BotUserID() string {
	return c.me.Id
}

// =============================================================================
// OUTBOUND (Chat interface)
// =============================================================================

// SendMessage posts a markdown message to a channel.
func (c *Client) SendMessage(channelID, message string) error {
	_, _, err := c.api.CreatePost(context.Background(), &model.Post{
		ChannelId: channelID,
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// SendFile uploads a file and attaches it to a new post.
func (c *Client) SendFile(channelID, filename string, data []byte, message string) error {
	ctx := context.Background()

	upload, _, err := c.api.UploadFile(ctx, data, channelID, filename)
	if err != nil {
		return fmt.Errorf("upload file %s: %w", filename, err)
	}
	if len(upload.FileInfos) == 0 {
		return fmt.Errorf("upload file %s: server returned no file info", filename)
	}

	_, _, err = c.api.CreatePost(ctx, &model.Post{
		ChannelId: channelID,
		Message:   message,
		FileIds:   model.StringArray{upload.FileInfos[0].Id},
	})
	if err != nil {
		return fmt.Errorf("create file post: %w", err)
	}
	return nil
}

// IsDirectChannel reports whether a channel is a direct-message channel.
func (c *Client) IsDirectChannel(channelID string) (bool, error) {
	c.mu.RLock()
	t, ok := c.channelTypes[channelID]
	c.mu.RUnlock()
	if ok {
		return t == model.ChannelTypeDirect, nil
	}

	ch, _, err := c.api.GetChannel(context.Background(), channelID, "")
	if err != nil {
		return false, fmt.Errorf("get channel %s: %w", channelID, err)
	}

	c.mu.Lock()
	c.channelTypes[channelID] = ch.Type
	c.mu.Unlock()
	return ch.Type == model.ChannelTypeDirect, nil
}

// =============================================================================
// INBOUND
// =============================================================================

// Listen runs the websocket event loop until ctx is cancelled, invoking
// handle for every post written by someone other than the bot.
func (c *Client) Listen(ctx context.Context, handle func(userID, channelID, message string)) error {
	for {
		if err := c.listenOnce(ctx, handle); err != nil {
			log.Printf("mattermost: websocket disconnected: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
		log.Printf("mattermost: reconnecting websocket")
	}
}

func (c *Client) listenOnce(ctx context.Context, handle func(userID, channelID, message string)) error {
	ws, err := model.NewWebSocketClient4(c.wsURL, c.token)
	if err != nil {
		return fmt.Errorf("dial websocket: %w", err)
	}
	defer ws.Close()
	ws.Listen()
	log.Printf("mattermost: websocket connected")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-ws.EventChannel:
			if !ok {
				if ws.ListenError != nil {
					return ws.ListenError
				}
				return fmt.Errorf("event channel closed")
			}
			c.dispatch(event, handle)
		}
	}
}

func (c *Client) dispatch(event *model.WebSocketEvent, handle func(userID, channelID, message string)) {
	if event.EventType() != model.WebsocketEventPosted {
		return
	}

	raw, ok := event.GetData()["post"].(string)
	if !ok {
		return
	}
	var post model.Post
	if err := json.Unmarshal([]byte(raw), &post); err != nil {
		log.Printf("mattermost: malformed post payload: %v", err)
		return
	}
	if post.UserId == c.me.Id {
		// Never react to the bot's own messages.
		return
	}
	handle(post.UserId, post.ChannelId, post.Message)
}
