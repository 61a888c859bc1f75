/*
report.go - Report generation at the end of the report conversation

PURPOSE:
  Once a session has selected projects and a resolved period, this step
  pulls worklogs from Jira, renders the Excel workbook, sends it back to
  the user with a short statistics summary, and records the run.

SEE ALSO:
  - report/excel.go: workbook rendering
  - jira/client.go: worklog extraction
  - store/sqlite/sqlite.go: report run history
*/
package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/period"
	"github.com/relay/timesheet-bot/report"
	"github.com/relay/timesheet-bot/store/sqlite"
)

// projectStats accumulates per-project totals for the summary message,
// in first-selected order.
type projectStats struct {
	project jira.Project
	records int
	hours   decimal.Decimal
}

func (b *Bot) generateReport(ctx context.Context, rec sqlite.SessionRecord, p period.Period) {
	src, err := b.userSource(ctx, rec.UserID)
	if err != nil {
		b.reportSourceError(rec.ChannelID, err)
		return
	}

	projects, err := b.selectedProjects(ctx, src, rec.ProjectKeys)
	if err != nil {
		log.Printf("bot: report aborted for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Ошибка получения данных из Jira")
		return
	}

	var rows []jira.Row
	stats := make([]projectStats, 0, len(projects))
	for _, project := range projects {
		projectRows, err := src.WorklogsForProject(ctx, project.Key, p)
		if err != nil {
			log.Printf("bot: worklog fetch failed for %s/%s: %v", rec.UserID, project.Key, err)
			b.sendError(rec.ChannelID,
				fmt.Sprintf("Ошибка получения трудозатрат проекта %s", project.Key))
			return
		}
		st := projectStats{project: project}
		for _, r := range projectRows {
			st.records++
			st.hours = st.hours.Add(r.Hours)
		}
		stats = append(stats, st)
		rows = append(rows, projectRows...)
	}

	if len(rows) == 0 {
		b.clearSession(ctx, rec.UserID)
		b.send(rec.ChannelID, fmt.Sprintf(
			"📭 Трудозатраты за период с %s по %s не найдены.",
			p.Start, p.End))
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	reportName := projects[0].Name
	if len(projects) > 1 {
		reportName = fmt.Sprintf("Сводный отчет по %d проектам", len(projects))
	}

	data, err := report.Timesheet(rows, reportName, p, projects)
	if err != nil {
		log.Printf("bot: workbook build failed for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Не удалось сформировать Excel файл")
		return
	}
	filename := report.Filename(projects, p)

	total := report.TotalHours(rows)
	summary := buildSummary(rows, total, stats, p)

	if err := b.Chat.SendFile(rec.ChannelID, filename, data, summary); err != nil {
		log.Printf("bot: file upload failed for %s: %v", rec.UserID, err)
		b.sendError(rec.ChannelID, "Не удалось отправить файл отчета")
		return
	}

	b.recordRun(ctx, rec, p, len(rows), total, filename)
	b.clearSession(ctx, rec.UserID)
}

// selectedProjects resolves the session's stored keys back to projects,
// preserving selection order.
func (b *Bot) selectedProjects(ctx context.Context, src WorklogSource, keys []string) ([]jira.Project, error) {
	available, err := src.Projects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	byKey := make(map[string]jira.Project, len(available))
	for _, p := range available {
		byKey[p.Key] = p
	}

	projects := make([]jira.Project, 0, len(keys))
	for _, key := range keys {
		p, ok := byKey[key]
		if !ok {
			// The project disappeared between selection and generation.
			return nil, fmt.Errorf("project %s is no longer available", key)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func buildSummary(rows []jira.Row, total decimal.Decimal, stats []projectStats, p period.Period) string {
	var sb strings.Builder
	sb.WriteString("✅ **Отчет готов!**\n\n")
	fmt.Fprintf(&sb, "📅 Период: с %s по %s\n", p.Start, p.End)
	fmt.Fprintf(&sb, "📝 Записей: %d\n", len(rows))
	fmt.Fprintf(&sb, "⏱ Всего часов: %s\n", report.FormatHours(total))

	if len(stats) > 1 {
		sb.WriteString("\n**По проектам:**\n")
		for _, st := range stats {
			fmt.Fprintf(&sb, "• %s (%s): %d записей, %s ч\n",
				st.project.Name, st.project.Key, st.records, report.FormatHours(st.hours))
		}
	}
	return sb.String()
}

func (b *Bot) recordRun(ctx context.Context, rec sqlite.SessionRecord, p period.Period, rowCount int, total decimal.Decimal, filename string) {
	err := b.Store.RecordReportRun(ctx, sqlite.ReportRun{
		ID:          uuid.NewString(),
		UserID:      rec.UserID,
		Projects:    strings.Join(rec.ProjectKeys, ","),
		PeriodStart: p.Start.String(),
		PeriodEnd:   p.End.String(),
		RowCount:    rowCount,
		TotalHours:  report.FormatHours(total),
		Filename:    filename,
	})
	if err != nil {
		// History is best-effort; the report has already been delivered.
		log.Printf("bot: failed to record report run for %s: %v", rec.UserID, err)
	}
}
