package bot

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xaenox/band-bot/internal/models"
)

const (
	onboardingText = "👋 Ready! Send your IELTS Task 1/2 essay as text (more than 80 characters) " +
		"or as a photo of the page, and I'll score it against the four IELTS criteria."
	insufficientText = "📩 Please send a longer essay (more than 80 characters) or a clear photo of your page."
	apologyText      = "⚠️ Sorry, I couldn't score that essay. Please send it as plain text or a clearer photo."
	noHistoryText    = "You don't have any scored essays yet."

	// Telegram rejects messages longer than this many characters.
	maxMessageLength = 4096
)

// formatSummary renders the band summary followed by the task response notes.
func formatSummary(r models.ScoringResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Overall Band: %s\n", formatBand(r.Overall))
	fmt.Fprintf(&sb, "Task Response: %s\n", formatBand(r.Criteria.TaskResponse.Band))
	fmt.Fprintf(&sb, "Coherence & Cohesion: %s\n", formatBand(r.Criteria.Coherence.Band))
	fmt.Fprintf(&sb, "Lexical Resource: %s\n", formatBand(r.Criteria.Lexical.Band))
	fmt.Fprintf(&sb, "Grammatical Range & Accuracy: %s", formatBand(r.Criteria.Grammar.Band))

	if notes := r.Criteria.TaskResponse.Notes; notes != "" {
		sb.WriteString("\n\n")
		sb.WriteString(notes)
	}
	return truncate(sb.String(), maxMessageLength)
}

func formatRewrite(r models.ScoringResult) string {
	return truncate("✍️ Suggested rewrite:\n\n"+r.Rewrite, maxMessageLength)
}

func formatHistory(essays []models.Essay) string {
	if len(essays) == 0 {
		return noHistoryText
	}
	var sb strings.Builder
	sb.WriteString("Your recent essays:\n")
	for _, e := range essays {
		fmt.Fprintf(&sb, "\n%s · Overall Band %s", e.CreatedAt.UTC().Format("2006-01-02"), formatBand(e.Result.Overall))
	}
	return sb.String()
}

// formatBand prints 6 and 6.5 rather than 6.0 and 6.50.
func formatBand(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

// truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
