package services

import (
	"fmt"
	"sort"

	"github.com/TaCeiN/max-task-mvp/internal/models"
)

// Gradation is one reminder threshold: fire when roughly Minutes remain
// before the deadline. Tag is the canonical short id used for de-duplication,
// Label the human-readable duration for the message text.
type Gradation struct {
	Minutes int
	Tag     string
	Label   string
}

// DefaultGradations is the reminder ladder applied to users without a
// configured schedule, farthest first.
var DefaultGradations = []Gradation{
	{14 * 24 * 60, "14d", "14 дней"},
	{7 * 24 * 60, "7d", "7 дней"},
	{3 * 24 * 60, "3d", "3 дня"},
	{24 * 60, "1d", "1 день"},
	{12 * 60, "12h", "12 часов"},
	{6 * 60, "6h", "6 часов"},
	{3 * 60, "3h", "3 часа"},
	{60, "1h", "1 час"},
	{30, "30m", "30 минут"},
}

// ResolveGradations builds the threshold list for a user's configured minute
// offsets, sorted descending. With no configured offsets the default ladder
// applies.
func ResolveGradations(minutes []int) []Gradation {
	if len(minutes) == 0 {
		return DefaultGradations
	}

	normalized := models.NormalizeReminderMinutes(minutes)
	sort.Sort(sort.Reverse(sort.IntSlice(normalized)))

	gradations := make([]Gradation, 0, len(normalized))
	for _, m := range normalized {
		gradations = append(gradations, Gradation{
			Minutes: m,
			Tag:     GradationTag(m),
			Label:   FormatTimeRemaining(m),
		})
	}
	return gradations
}

// GradationTag derives the canonical tag for a minute offset: days when the
// offset is at least a day, hours when at least an hour, minutes otherwise.
func GradationTag(minutes int) string {
	switch {
	case minutes >= 24*60:
		return fmt.Sprintf("%dd", minutes/(24*60))
	case minutes >= 60:
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatTimeRemaining renders a minute count as a Russian duration string,
// decomposed into days/hours/minutes with zero components omitted.
func FormatTimeRemaining(minutes int) string {
	if minutes >= 24*60 {
		days := minutes / (24 * 60)
		rest := minutes % (24 * 60)
		hours := rest / 60
		mins := rest % 60

		result := fmt.Sprintf("%d %s", days, models.PluralRu(days, "день", "дня", "дней"))
		if hours > 0 {
			result += fmt.Sprintf(" %d %s", hours, models.PluralRu(hours, "час", "часа", "часов"))
		}
		if mins > 0 {
			result += fmt.Sprintf(" %d %s", mins, models.PluralRu(mins, "минута", "минуты", "минут"))
		}
		return result
	}

	if minutes >= 60 {
		hours := minutes / 60
		mins := minutes % 60

		result := fmt.Sprintf("%d %s", hours, models.PluralRu(hours, "час", "часа", "часов"))
		if mins > 0 {
			result += fmt.Sprintf(" %d %s", mins, models.PluralRu(mins, "минута", "минуты", "минут"))
		}
		return result
	}

	return fmt.Sprintf("%d %s", minutes, models.PluralRu(minutes, "минута", "минуты", "минут"))
}
