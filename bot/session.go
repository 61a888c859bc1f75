/*
session.go - Conversation steps and session helpers

PURPOSE:
  The bot walks each user through a short linear conversation. A session
  records which step the user is on and what they have provided so far;
  it lives in the store so conversations survive restarts.

STEPS:
  Login:   StepEmail -> StepToken
  Report:  StepProject -> StepPeriod -> (report generated, session cleared)

SEE ALSO:
  - bot.go: the dispatcher that advances sessions
  - store/sqlite/sqlite.go: persistence of SessionRecord
*/
package bot

import (
	"context"
	"log"

	"github.com/relay/timesheet-bot/store/sqlite"
)

// Step identifies where a user is in the conversation.
type Step string

const (
	// Login flow
	StepEmail Step = "jira_email"
	StepToken Step = "jira_token"

	// Report flow
	StepProject Step = "project_selection"
	StepPeriod  Step = "period"
)

// beginSession starts a fresh session for the user at the given step,
// discarding any previous one.
func (b *Bot) beginSession(ctx context.Context, userID, channelID string, step Step) error {
	return b.Store.SaveSession(ctx, sqlite.SessionRecord{
		UserID:    userID,
		ChannelID: channelID,
		Step:      string(step),
	})
}

// advance persists the session with its updated step/fields.
func (b *Bot) advance(ctx context.Context, rec sqlite.SessionRecord, step Step) error {
	rec.Step = string(step)
	return b.Store.SaveSession(ctx, rec)
}

// clearSession drops the user's session; used on completion and on отмена.
func (b *Bot) clearSession(ctx context.Context, userID string) {
	if err := b.Store.DeleteSession(ctx, userID); err != nil {
		log.Printf("bot: failed to clear session for %s: %v", userID, err)
	}
}
