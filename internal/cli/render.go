package cli

import (
	"fmt"
	"strings"

	"github.com/nexora/nexora-bfa-go/internal/domain"

	"github.com/charmbracelet/lipgloss"
)

const (
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorRed      lipgloss.Color = "#f38ba8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorLavender lipgloss.Color = "#b4befe"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorLavender)
	labelStyle = lipgloss.NewStyle().Foreground(colorOverlay1)
	cardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorOverlay1).Padding(0, 1)
	warnStyle  = lipgloss.NewStyle().Foreground(colorYellow)
)

func categoryColor(category string) lipgloss.Color {
	switch category {
	case domain.CategoryExcellent:
		return colorGreen
	case domain.CategoryGood:
		return colorTeal
	case domain.CategoryFair:
		return colorYellow
	case domain.CategoryPoor:
		return colorRed
	default:
		return colorOverlay1
	}
}

func scoreLine(label string, s *domain.ScopedScore) string {
	if s == nil {
		return labelStyle.Render(label+": ") + warnStyle.Render("unavailable")
	}
	value := lipgloss.NewStyle().Bold(true).Foreground(categoryColor(s.Category)).
		Render(fmt.Sprintf("%.1f %s", s.Score, s.Category))
	return labelStyle.Render(label+": ") + value +
		labelStyle.Render(fmt.Sprintf("  (%d invoice%s)", s.TotalInvoices, plural(s.TotalInvoices)))
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// ScoreCard renders an upload result. The individual and overall scores are
// always labelled apart.
func ScoreCard(rec *domain.Reconciliation) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Invoice processed"))
	if rec.Duplicate {
		b.WriteString(" " + warnStyle.Render("(duplicate)"))
	}
	b.WriteString("\n")

	if inv := rec.Invoice; inv != nil {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Invoice:"), inv.InvoiceNumber)
		if inv.Client != "" {
			fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Client: "), inv.Client)
		}
	}
	if d := rec.Display; d != nil {
		fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
			labelStyle.Render("Total:"), d.TotalAmount,
			labelStyle.Render("Tax:"), d.TaxAmount,
			labelStyle.Render("Extra:"), d.ExtraCharges)
	}
	b.WriteString("\n")
	b.WriteString(scoreLine("This invoice", rec.Individual) + "\n")
	b.WriteString(scoreLine("Overall     ", rec.Total))

	if rec.Display != nil && rec.Display.EmptyState != "" {
		b.WriteString("\n" + labelStyle.Render(rec.Display.EmptyState))
	}
	for _, f := range rec.Failures {
		b.WriteString("\n" + warnStyle.Render(fmt.Sprintf("! %s: %s", f.Step, f.Message)))
	}
	return cardStyle.Render(b.String())
}

// DashboardCard renders the cumulative score.
func DashboardCard(d *domain.DashboardScore) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Credit score") + "\n")
	b.WriteString(scoreLine("Overall", &domain.ScopedScore{
		Scope:         domain.ScopeTotal,
		Score:         d.Score,
		Category:      d.Category,
		TotalInvoices: d.TotalInvoices,
	}))
	if d.LastUpdated != "" {
		b.WriteString("\n" + labelStyle.Render("Last updated: "+d.LastUpdated))
	}
	if d.EmptyState != "" {
		b.WriteString("\n" + labelStyle.Render(d.EmptyState))
	}
	return cardStyle.Render(b.String())
}
