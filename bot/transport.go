/*
transport.go - Chat transport and worklog source boundaries

PURPOSE:
  The bot core is transport-agnostic: it consumes incoming posts and
  talks back through the Chat interface. The mattermost package provides
  the production implementation; tests use in-memory fakes.

  Jira access is likewise behind an interface, created per user from
  their decrypted credentials by a SourceFactory.

SEE ALSO:
  - mattermost/client.go: production Chat implementation
  - jira/client.go: production WorklogSource implementation
*/
package bot

import (
	"context"

	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/period"
)

// Post is an incoming chat message addressed to the bot.
type Post struct {
	UserID    string
	ChannelID string
	Message   string
}

// Chat is the outbound side of the chat transport.
type Chat interface {
	// SendMessage posts a markdown message to a channel.
	SendMessage(channelID, message string) error

	// SendFile uploads a file and posts it with an accompanying message.
	SendFile(channelID, filename string, data []byte, message string) error

	// IsDirectChannel reports whether the channel is a DM with the bot.
	// The bot only ever answers in direct messages.
	IsDirectChannel(channelID string) (bool, error)
}

// WorklogSource is the slice of Jira the bot needs, bound to one user's
// credentials.
type WorklogSource interface {
	// Verify checks the credentials and returns the account's display name.
	Verify(ctx context.Context) (string, error)

	// Projects lists the projects visible to the user.
	Projects(ctx context.Context) ([]jira.Project, error)

	// WorklogsForProject returns report rows for one project over a period.
	WorklogsForProject(ctx context.Context, projectKey string, p period.Period) ([]jira.Row, error)
}

// SourceFactory builds a WorklogSource from a user's decrypted credentials.
type SourceFactory func(email, apiToken string) (WorklogSource, error)
