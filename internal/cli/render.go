package cli

import (
	"fmt"
	"strings"

	"github.com/nakuljhunjhunwala/creditcard-suggestor/internal/model"
)

// RenderSession formats a session status line for terminal display.
func RenderSession(session *model.Session) string {
	var b strings.Builder

	b.WriteString(BoldStyle.Render(session.Token))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Status:       %s\n", styleStatus(session.Status)))
	b.WriteString(fmt.Sprintf("  Progress:     %d%%\n", session.Progress))
	if session.TotalTransactions > 0 {
		b.WriteString(fmt.Sprintf("  Transactions: %d (%d categorized, %d unknown MCC)\n",
			session.TotalTransactions, session.CategorizedCount, session.UnknownMCCCount))
		b.WriteString(fmt.Sprintf("  Total spend:  $%.2f\n", session.TotalSpend))
	}
	if session.TopCategory != "" {
		b.WriteString(fmt.Sprintf("  Top category: %s\n", session.TopCategory))
	}
	if session.ErrorMessage != "" {
		b.WriteString("  " + FormatError(session.ErrorMessage) + "\n")
	}
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("  Expires %s", session.ExpiresAt.Format("2006-01-02 15:04"))))

	return b.String()
}

// RenderAnalysis formats spending patterns as an aligned table.
func RenderAnalysis(patterns []model.SpendingPattern) string {
	if len(patterns) == 0 {
		return FormatInfo("No spending patterns to show.")
	}

	var b strings.Builder
	b.WriteString(SubtitleStyle.Render(ChartIcon + " Spending Analysis"))
	b.WriteString("\n\n")

	header := fmt.Sprintf("%-28s %12s %8s %8s", "Category", "Spent", "Count", "Share")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")
	for _, p := range patterns {
		b.WriteString(TableCellStyle.Render(fmt.Sprintf("%-28s %12s %8d %7.1f%%",
			truncate(p.CategoryName, 28),
			fmt.Sprintf("$%.2f", p.TotalSpent),
			p.TransactionCount,
			p.Percentage)))
		b.WriteString("\n")
	}

	return b.String()
}

// RenderRecommendations formats a full recommendation result.
func RenderRecommendations(result *model.RecommendationResult) string {
	var b strings.Builder

	b.WriteString(FormatTitle("Card Recommendations"))
	b.WriteString("\n\n")

	if result.LowConfidence {
		b.WriteString(FormatWarning("Limited statement data; treat these rankings as indicative."))
		b.WriteString("\n\n")
	}

	for i, rec := range result.Recommendations {
		b.WriteString(renderRecommendation(i+1, &rec))
		b.WriteString("\n")
	}

	summary := fmt.Sprintf("Top pick: %s  |  Potential savings: $%.2f/period  |  Confidence: %s",
		result.Summary.TopPick,
		result.Summary.PotentialSavings,
		result.Summary.ConfidenceLabel)
	b.WriteString(RenderBox("Summary", summary))

	return b.String()
}

func renderRecommendation(rank int, rec *model.CardRecommendation) string {
	var b strings.Builder

	icon := "  "
	if rank == 1 {
		icon = TrophyIcon + " "
	}
	b.WriteString(BoldStyle.Render(fmt.Sprintf("%s%d. %s", icon, rank, rec.CardName)))
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("  (%s)", rec.Issuer)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("   Score %.1f  ·  Confidence %.0f%%\n", rec.Score, rec.ConfidenceScore*100))

	for _, pro := range rec.Pros {
		b.WriteString("   " + SuccessStyle.Render("+ "+pro) + "\n")
	}
	for _, con := range rec.Cons {
		b.WriteString("   " + WarningStyle.Render("- "+con) + "\n")
	}

	if savings := rec.PotentialSavings(); savings > 0 {
		b.WriteString("   " + InfoStyle.Render(fmt.Sprintf("Earns $%.2f more than your current card this period", savings)) + "\n")
	}

	return b.String()
}

// RenderBenefits formats the per-category benefit table for one card.
func RenderBenefits(rec *model.CardRecommendation) string {
	if len(rec.BenefitBreakdown) == 0 {
		return ""
	}

	var b strings.Builder
	header := fmt.Sprintf("%-24s %10s %10s %10s", "Category", "Spent", "Current", "Card")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")
	for _, benefit := range rec.BenefitBreakdown {
		row := fmt.Sprintf("%-24s %10s %10s %10s",
			truncate(benefit.CategoryName, 24),
			fmt.Sprintf("$%.2f", benefit.AmountSpent),
			fmt.Sprintf("$%.2f", benefit.CurrentValue),
			fmt.Sprintf("$%.2f", benefit.CardValue))
		if benefit.Capped {
			row += SubtleStyle.Render(" (capped)")
		}
		b.WriteString(row + "\n")
	}

	return b.String()
}

func styleStatus(status model.SessionStatus) string {
	switch status {
	case model.StatusCompleted:
		return SuccessStyle.Render(string(status))
	case model.StatusFailed:
		return ErrorStyle.Render(string(status))
	default:
		return InfoStyle.Render(string(status))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
