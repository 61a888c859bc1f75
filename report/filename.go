/*
filename.go - Report file naming

PURPOSE:
  Builds the attachment filename for a generated report. Project names may
  contain characters that are unsafe in filenames; only letters, digits,
  spaces, dashes and underscores survive, and spaces become underscores.
  Multi-project reports get the "svodnyj" (consolidated) prefix; past three
  projects the keys are replaced with a count.
*/
package report

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/period"
)

// Filename returns the .xlsx attachment name for the report.
func Filename(projects []jira.Project, p period.Period) string {
	if len(projects) == 1 {
		return fmt.Sprintf("trudozatraty_%s_%s_%s.xlsx",
			safeName(projects[0].Name), p.Start, p.End)
	}

	var label string
	if len(projects) > 3 {
		label = fmt.Sprintf("%d_proektov", len(projects))
	} else {
		keys := make([]string, len(projects))
		for i, pr := range projects {
			keys[i] = pr.Key
		}
		label = strings.Join(keys, "_")
	}
	return fmt.Sprintf("trudozatraty_svodnyj_%s_%s_%s.xlsx", label, p.Start, p.End)
}

// safeName strips characters that are risky in filenames.
func safeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
