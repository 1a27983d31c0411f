package handlers

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"odoodeploy.io/console/internal/availability"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/progress"
	"odoodeploy.io/console/internal/usecase"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle   = lipgloss.NewStyle().Foreground(colorRed)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow)
)

const barWidth = 30

func renderOK(msg string) string   { return okStyle.Render("[OK] ") + msg }
func renderFail(msg string) string { return failStyle.Render("[FAIL] ") + msg }
func renderWarn(msg string) string { return warnStyle.Render("[WARN] ") + msg }
func renderDim(msg string) string  { return dimStyle.Render(msg) }

func renderTemplates(templates []backend.Template) string {
	var b strings.Builder
	if len(templates) == 0 {
		b.WriteString(renderDim("No templates available"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-24s %s", "ID", "NAME", "DESCRIPTION")))
	b.WriteString("\n")
	for _, t := range templates {
		fmt.Fprintf(&b, "%-8s %-24s %s\n", t.ID, t.Name, t.Description)
	}
	return b.String()
}

func renderDomains(instanceID string, domains []backend.Domain) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Domains of instance " + instanceID))
	b.WriteString("\n")
	if len(domains) == 0 {
		b.WriteString(renderDim("  none"))
		b.WriteString("\n")
		return b.String()
	}
	for _, d := range domains {
		mark := "  "
		if d.IsPrimary {
			mark = okStyle.Render("* ")
		}
		b.WriteString(mark + d.Domain)
		if d.Status != "" {
			b.WriteString(" " + dimStyle.Render("("+d.Status+")"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderAvailability(st availability.State) string {
	switch st.Verdict {
	case availability.VerdictAvailable:
		msg := st.Message
		if st.ResolvedDomain != "" {
			msg += ": " + st.ResolvedDomain
		}
		return renderOK(msg)
	case availability.VerdictUnverified:
		return renderWarn(st.Message)
	default:
		return renderFail(st.Message)
	}
}

// renderBar draws a fixed-width bar for percent in [0, 100].
func renderBar(percent int) string {
	percent = max(0, min(100, percent))
	filled := percent * barWidth / 100
	return "[" + okStyle.Render(strings.Repeat("█", filled)) +
		dimStyle.Render(strings.Repeat("░", barWidth-filled)) + "]" +
		fmt.Sprintf(" %3d%%", percent)
}

// progressPrinter writes one line per stage transition.
type progressPrinter struct {
	out  io.Writer
	seen map[progress.Stage]progress.Status
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{out: out, seen: make(map[progress.Stage]progress.Status)}
}

// Update prints the stages whose status changed since the last snapshot.
func (p *progressPrinter) Update(snap progress.Snapshot) {
	for _, st := range snap.Stages {
		if st.Status == progress.StatusPending || p.seen[st.Stage] == st.Status {
			continue
		}
		p.seen[st.Stage] = st.Status
		switch st.Status {
		case progress.StatusActive:
			fmt.Fprintf(p.out, "%s %s...\n", renderBar(snap.Percent), st.Label)
		case progress.StatusCompleted:
			fmt.Fprintln(p.out, renderOK(st.Label))
		}
	}
}

func renderStageError(err *usecase.StageError) string {
	var b strings.Builder
	b.WriteString(renderFail(fmt.Sprintf("%s: %s", err.Stage, err.Message)))
	b.WriteString("\n")
	if err.Outcome() == usecase.SubscriptionReconciliationRequired {
		b.WriteString(renderWarn(fmt.Sprintf(
			"subscription %s exists but is not active; reconcile it manually", err.SubscriptionID)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderActivation(instanceID string, method usecase.PaymentMethod, res *usecase.ActivationResult) string {
	var b strings.Builder
	b.WriteString(renderOK("Subscription activated for instance " + instanceID))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render("Subscription:"), res.SubscriptionID)
	fmt.Fprintf(&b, "  %s %.2f (%s)\n", dimStyle.Render("Amount paid: "), res.AmountPaid, method)
	fmt.Fprintf(&b, "  %s %s\n", dimStyle.Render("Reference:   "), res.PaymentReference)
	return b.String()
}
