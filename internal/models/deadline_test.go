package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPluralRu(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{1, "день"},
		{2, "дня"},
		{3, "дня"},
		{4, "дня"},
		{5, "дней"},
		{11, "дней"},
		{0, "дней"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PluralRu(tt.n, "день", "дня", "дней"), "n=%d", tt.n)
	}
}

func TestDeadlineInfo(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		dueAt    time.Time
		wantDays int
		status   string
		text     string
	}{
		{"past due", now.Add(-time.Minute), 0, DeadlineStatusOverdue, "просрочен"},
		{"under an hour", now.Add(30 * time.Minute), 0, DeadlineStatusToday, "сегодня"},
		{"later today", now.Add(2*time.Hour + 30*time.Minute), 0, DeadlineStatusToday, "сегодня (2 ч. 30 мин.)"},
		{"even hours today", now.Add(3 * time.Hour), 0, DeadlineStatusToday, "сегодня (3 ч.)"},
		{"exactly one day", now.Add(24 * time.Hour), 1, DeadlineStatusActive, "1 день"},
		{"days hours minutes", now.Add(3*24*time.Hour + 4*time.Hour + 5*time.Minute), 3, DeadlineStatusActive, "3 дня 4 часа 5 минут"},
		{"many days", now.Add(7 * 24 * time.Hour), 7, DeadlineStatusActive, "7 дней"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Deadline{DueAt: tt.dueAt}
			info := d.Info(now)
			assert.Equal(t, tt.wantDays, info.DaysRemaining)
			assert.Equal(t, tt.status, info.Status)
			assert.Equal(t, tt.text, info.TimeRemainingText)
		})
	}
}
