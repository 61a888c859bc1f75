/*
Package config loads the bot configuration from the environment.

PURPOSE:
  All deploy-specific settings come from environment variables, loaded
  through .env in development (godotenv) and the real environment in
  production. Flags cover only local runtime knobs (db path, status
  port); secrets never go through flags.

VARIABLES:
  MATTERMOST_URL    Mattermost server base URL           (required)
  MATTERMOST_TOKEN  Bot account access token             (required)
  JIRA_URL          Jira base URL, e.g. https://x.atlassian.net (required)
  BOT_SECRET        Key material for the credential vault (required)
  BOT_NAME          Display name used in logs            (default: timesheet-bot)

SEE ALSO:
  - cmd/bot/main.go: where the config is loaded and wired
  - auth/vault.go: consumer of BOT_SECRET
*/
package config

import (
	"os"
	"strings"
)

// MissingVarsError names every required environment variable that is unset,
// so a misconfigured deployment fails once with the full list.
type MissingVarsError struct {
	Vars []string
}

func (e *MissingVarsError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Vars, ", ")
}

// Config is the environment-derived configuration of the bot.
type Config struct {
	MattermostURL   string
	MattermostToken string
	JiraURL         string
	BotSecret       string
	BotName         string
}

// FromEnv reads the configuration from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		MattermostURL:   strings.TrimRight(os.Getenv("MATTERMOST_URL"), "/"),
		MattermostToken: os.Getenv("MATTERMOST_TOKEN"),
		JiraURL:         strings.TrimRight(os.Getenv("JIRA_URL"), "/"),
		BotSecret:       os.Getenv("BOT_SECRET"),
		BotName:         os.Getenv("BOT_NAME"),
	}
	if cfg.BotName == "" {
		cfg.BotName = "timesheet-bot"
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	var missing []string
	if c.MattermostURL == "" {
		missing = append(missing, "MATTERMOST_URL")
	}
	if c.MattermostToken == "" {
		missing = append(missing, "MATTERMOST_TOKEN")
	}
	if c.JiraURL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if c.BotSecret == "" {
		missing = append(missing, "BOT_SECRET")
	}
	if len(missing) > 0 {
		return &MissingVarsError{Vars: missing}
	}
	return nil
}
