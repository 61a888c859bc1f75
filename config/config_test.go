package config_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relay/timesheet-bot/config"
)

func setRequired(t *testing.T) {
	t.Setenv("MATTERMOST_URL", "https://chat.company.ru/")
	t.Setenv("MATTERMOST_TOKEN", "mm-token")
	t.Setenv("JIRA_URL", "https://company.atlassian.net")
	t.Setenv("BOT_SECRET", "secret")
	t.Setenv("BOT_NAME", "")
}

func TestFromEnv_Complete(t *testing.T) {
	setRequired(t)

	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.company.ru", cfg.MattermostURL, "trailing slash trimmed")
	assert.Equal(t, "timesheet-bot", cfg.BotName, "default name")
}

func TestFromEnv_NamesEveryMissingVariable(t *testing.T) {
	setRequired(t)
	t.Setenv("MATTERMOST_TOKEN", "")
	t.Setenv("BOT_SECRET", "")

	_, err := config.FromEnv()
	require.Error(t, err)

	var missing *config.MissingVarsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"MATTERMOST_TOKEN", "BOT_SECRET"}, missing.Vars)
	assert.Contains(t, err.Error(), "MATTERMOST_TOKEN, BOT_SECRET")
}
