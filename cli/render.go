package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/lanathlor/Forge-sub000/pkg/models"
)

var (
	attentionColor  = color.New(color.FgRed, color.Bold)
	workingColor    = color.New(color.FgGreen)
	waitingColor    = color.New(color.FgYellow)
	idleColor       = color.New(color.FgHiBlack)
	connectedColor  = color.New(color.FgGreen)
	connectingColor = color.New(color.FgYellow)
	errorColor      = color.New(color.FgRed)
	headerColor     = color.New(color.Bold)
)

// severityColors maps alert severity to its display color.
var severityColors = map[models.Severity]*color.Color{
	models.SeverityLow:      color.New(color.FgYellow),
	models.SeverityMedium:   color.New(color.FgYellow, color.Bold),
	models.SeverityHigh:     color.New(color.FgRed),
	models.SeverityCritical: color.New(color.FgRed, color.Bold),
}

func statusColor(s models.ClaudeStatus) *color.Color {
	switch s {
	case models.StatusWriting, models.StatusThinking:
		return workingColor
	case models.StatusWaitingInput:
		return waitingColor
	case models.StatusStuck, models.StatusPaused:
		return attentionColor
	default:
		return idleColor
	}
}

// FormatDuration renders an elapsed-seconds count as a compact clock
// string: 45s, 3m12s, 1h04m.
func FormatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", seconds)
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh%02dm", seconds/3600, (seconds%3600)/60)
	}
}

// Board renders the ranked repository view to a terminal. It repaints in
// place the way a live dashboard does; callers drive it from observer
// updates.
type Board struct {
	w       io.Writer
	repaint bool
	start   time.Time
}

// NewBoard creates a board writing to w. When repaint is true each Render
// clears the screen first; one-shot commands pass false.
func NewBoard(w io.Writer, repaint bool) *Board {
	return &Board{w: w, repaint: repaint, start: time.Now()}
}

// Render paints one frame: connection header, ranked entries with alert
// badges, unattached alert footer. seconds reports the per-repository
// live counter; pass nil to use the stored duration.
func (b *Board) Render(ranked []*models.RepoSessionState, alerts []*models.Alert, conn models.ConnectionState, seconds func(repoID string) int64) {
	if b.repaint {
		fmt.Fprint(b.w, "\033[H\033[2J")
	}

	b.renderConnection(conn)
	fmt.Fprintln(b.w)

	if len(ranked) == 0 {
		idleColor.Fprintln(b.w, "  no repositories")
		return
	}

	byRepo := make(map[string]*models.Alert, len(alerts))
	for _, a := range alerts {
		byRepo[a.RepositoryID] = a
	}

	for i, entry := range ranked {
		b.renderEntry(i+1, entry, byRepo[entry.RepositoryID], seconds)
	}
}

func (b *Board) renderConnection(conn models.ConnectionState) {
	elapsed := time.Since(b.start).Round(time.Second)
	switch conn.Phase {
	case models.ConnPhaseConnected:
		connectedColor.Fprint(b.w, "● connected")
	case models.ConnPhaseConnecting:
		connectingColor.Fprint(b.w, "◌ connecting...")
	default:
		errorColor.Fprintf(b.w, "✗ disconnected")
		if conn.Reason != "" {
			fmt.Fprintf(b.w, " (%s)", conn.Reason)
		}
		idleColor.Fprint(b.w, "  showing last known data")
	}
	fmt.Fprintf(b.w, "  [%s]\n", elapsed)
}

func (b *Board) renderEntry(n int, entry *models.RepoSessionState, alert *models.Alert, seconds func(string) int64) {
	marker := " "
	if entry.NeedsAttention {
		marker = attentionColor.Sprint("!")
	}

	name := entry.RepositoryName
	if name == "" {
		name = entry.RepositoryID
	}

	fmt.Fprintf(b.w, "%s %2d. %-24s %s", marker, n, name,
		statusColor(entry.ClaudeStatus).Sprintf("%-13s", entry.ClaudeStatus))

	if alert != nil {
		secs := alert.StuckDurationSecs
		if seconds != nil {
			secs = seconds(alert.RepositoryID)
		}
		badge := fmt.Sprintf("[%s %s]", strings.ToUpper(string(alert.Severity)), FormatDuration(secs))
		if alert.Acknowledged {
			idleColor.Fprintf(b.w, " %s ack", badge)
		} else {
			severityColors[alert.Severity].Fprintf(b.w, " %s", badge)
		}
	}

	if entry.CurrentTask != "" {
		idleColor.Fprintf(b.w, "  %s", entry.CurrentTask)
	}
	fmt.Fprintln(b.w)
}

// RenderSummary prints the alert roll-up line used after one-shot output.
func (b *Board) RenderSummary(alerts []*models.Alert) {
	if len(alerts) == 0 {
		return
	}
	counts := make(map[models.Severity]int)
	for _, a := range alerts {
		if !a.Acknowledged {
			counts[a.Severity]++
		}
	}
	if len(counts) == 0 {
		return
	}

	order := []models.Severity{models.SeverityCritical, models.SeverityHigh, models.SeverityMedium, models.SeverityLow}
	parts := make([]string, 0, len(counts))
	for _, sev := range order {
		if counts[sev] > 0 {
			parts = append(parts, severityColors[sev].Sprintf("%d %s", counts[sev], sev))
		}
	}
	fmt.Fprintln(b.w)
	headerColor.Fprint(b.w, "alerts: ")
	fmt.Fprintln(b.w, strings.Join(parts, ", "))
}
