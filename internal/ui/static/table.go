// Package static provides non-interactive terminal output components.
//
// This package contains components for rendering formatted output
// that does not require user interaction: the issue listing table,
// its plain tab-separated form for pipes, and the issue detail view.
package static

import (
	"fmt"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/raphi011/loom/internal/format"
	"github.com/raphi011/loom/internal/tracker"
	"github.com/raphi011/loom/internal/ui/styles"
)

// maxTitleWidth truncates titles in the listing table.
const maxTitleWidth = 60

// IssueHeaders are the listing table columns.
var IssueHeaders = []string{"", "ID", "TITLE", "STATE", "UPDATED"}

// RenderTable creates a formatted table with proper column alignment.
// Headers and rows are rendered using lipgloss/table which automatically
// calculates column widths based on content. No borders are rendered.
func RenderTable(headers []string, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}

	var output strings.Builder

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		BorderRow(false).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).PaddingRight(2)
			}
			return lipgloss.NewStyle().PaddingRight(2)
		})

	output.WriteString(t.String())
	output.WriteString("\n")

	return output.String()
}

// IssueTableRow returns one styled listing row matching IssueHeaders.
func IssueTableRow(item tracker.ListItem, now time.Time) []string {
	return []string{
		styles.ItemSymbol(item.Type, item.State),
		styles.FormatRef(item.ID, item.URL),
		truncate(item.Title, maxTitleWidth),
		styles.FormatState(item.State),
		styles.MutedStyle.Render(relative(item.UpdatedAt, now)),
	}
}

// RenderIssues renders items as a table.
func RenderIssues(items []tracker.ListItem, now time.Time) string {
	rows := make([][]string, len(items))
	for i, item := range items {
		rows[i] = IssueTableRow(item, now)
	}
	return RenderTable(IssueHeaders, rows)
}

// TSVRow returns an unstyled tab-separated line: type, id, state,
// updatedAt, title, url. Meant for scripts reading a pipe.
func TSVRow(item tracker.ListItem) string {
	typ := item.Type
	if typ == "" {
		typ = tracker.TypeIssue
	}
	title := strings.NewReplacer("\t", " ", "\n", " ").Replace(item.Title)
	return strings.Join([]string{string(typ), item.ID, string(item.State), item.UpdatedAt, title, item.URL}, "\t")
}

// RenderIssue renders the detail view of one issue.
func RenderIssue(issue *tracker.Issue, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", styles.FormatRef(issue.ID, issue.URL), styles.Bold.Render(issue.Title))

	meta := []string{styles.FormatState(issue.State), string(issue.Provider)}
	if issue.Author != nil {
		meta = append(meta, "by "+authorName(*issue.Author))
	}
	b.WriteString(styles.MutedStyle.Render(strings.Join(meta, " · ")))
	b.WriteString("\n")

	if len(issue.Assignees) > 0 {
		names := make([]string, len(issue.Assignees))
		for i, a := range issue.Assignees {
			names[i] = authorName(a)
		}
		field(&b, "Assignees", strings.Join(names, ", "))
	}
	if len(issue.Labels) > 0 {
		names := make([]string, len(issue.Labels))
		for i, l := range issue.Labels {
			names[i] = l.Name
		}
		field(&b, "Labels", strings.Join(names, ", "))
	}
	if issue.Milestone != "" {
		field(&b, "Milestone", issue.Milestone)
	}
	if issue.URL != "" {
		field(&b, "URL", issue.URL)
	}

	if body := strings.TrimSpace(issue.Body); body != "" {
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	for _, c := range issue.Comments {
		b.WriteString("\n")
		who := "unknown"
		if c.Author != nil {
			who = authorName(*c.Author)
		}
		header := fmt.Sprintf("%s commented %s", who, relative(c.CreatedAt, now))
		b.WriteString(styles.PrimaryStyle.Render(header))
		b.WriteString(styles.MutedStyle.Render(" [" + c.ID + "]"))
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(c.Body))
		b.WriteString("\n")
	}

	return b.String()
}

func field(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "%s %s\n", styles.PrimaryStyle.Render(name+":"), value)
}

func authorName(a tracker.Author) string {
	switch {
	case a.DisplayName != "":
		return a.DisplayName
	case a.Login != "":
		return a.Login
	default:
		return a.ID
	}
}

// relative formats an ISO-8601 timestamp relative to now. Unparseable
// input is returned unchanged.
func relative(ts string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return format.RelativeTimeFrom(t, now)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
