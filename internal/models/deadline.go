package models

import (
	"fmt"
	"time"
)

// NotificationTagExpired marks the one-time past-due notice. Unlike threshold
// records it survives schedule changes: a deadline expires only once.
const NotificationTagExpired = "expired"

// Deadline attaches a due instant to a todo note. A note has at most one
// deadline, enforced by the unique index on NoteID.
type Deadline struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	NoteID              uint      `gorm:"uniqueIndex;not null;constraint:OnDelete:CASCADE" json:"note_id"`
	UserID              uint      `gorm:"index;not null" json:"-"`
	DueAt               time.Time `gorm:"not null" json:"deadline_at"`
	NotificationEnabled bool      `gorm:"not null;default:false" json:"notification_enabled"`
	CreatedAt           time.Time `gorm:"not null" json:"-"`
	UpdatedAt           time.Time `gorm:"not null" json:"-"`
}

// NotificationRecord is an append-only record of a successfully sent reminder.
// The unique index on (deadline_id, tag) is the de-duplication key: an insert
// hitting it means another tick already sent this threshold.
type NotificationRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DeadlineID uint      `gorm:"not null;uniqueIndex:uq_deadline_notification;constraint:OnDelete:CASCADE" json:"deadline_id"`
	Tag        string    `gorm:"size:10;not null;uniqueIndex:uq_deadline_notification" json:"tag"`
	SentAt     time.Time `gorm:"not null" json:"sent_at"`
}

// TableName specifies the table name for the NotificationRecord model
func (NotificationRecord) TableName() string {
	return "deadline_notification"
}

// DeadlineStatusOverdue and friends classify a deadline for API responses
const (
	DeadlineStatusOverdue = "overdue"
	DeadlineStatusToday   = "today"
	DeadlineStatusActive  = "active"
)

// DeadlineInfo is the derived view of a deadline returned by the API
type DeadlineInfo struct {
	DaysRemaining     int    `json:"days_remaining"`
	Status            string `json:"status"`
	TimeRemainingText string `json:"time_remaining_text"`
}

// PluralRu picks the Russian plural form for n: 1 день, 2-4 дня, 5+ дней.
func PluralRu(n int, one, few, many string) string {
	switch {
	case n == 1:
		return one
	case n >= 2 && n <= 4:
		return few
	default:
		return many
	}
}

// Info computes the remaining-time view of the deadline relative to now.
func (d *Deadline) Info(now time.Time) DeadlineInfo {
	totalSeconds := int(d.DueAt.Sub(now) / time.Second)
	totalMinutes := totalSeconds / 60
	totalHours := totalMinutes / 60
	days := totalHours / 24

	if totalSeconds < 0 {
		return DeadlineInfo{DaysRemaining: 0, Status: DeadlineStatusOverdue, TimeRemainingText: "просрочен"}
	}

	if days == 0 {
		text := "сегодня"
		mins := totalMinutes % 60
		if totalHours > 0 {
			if mins > 0 {
				text = fmt.Sprintf("сегодня (%d ч. %d мин.)", totalHours, mins)
			} else {
				text = fmt.Sprintf("сегодня (%d ч.)", totalHours)
			}
		}
		return DeadlineInfo{DaysRemaining: 0, Status: DeadlineStatusToday, TimeRemainingText: text}
	}

	hours := totalHours % 24
	mins := totalMinutes % 60
	text := fmt.Sprintf("%d %s", days, PluralRu(days, "день", "дня", "дней"))
	if hours > 0 {
		text += fmt.Sprintf(" %d %s", hours, PluralRu(hours, "час", "часа", "часов"))
	}
	if mins > 0 {
		text += fmt.Sprintf(" %d %s", mins, PluralRu(mins, "минута", "минуты", "минут"))
	}
	return DeadlineInfo{DaysRemaining: days, Status: DeadlineStatusActive, TimeRemainingText: text}
}

// CreateDeadlineRequest represents the data needed to attach a deadline to a note
type CreateDeadlineRequest struct {
	NoteID     uint   `json:"note_id" binding:"required"`
	DeadlineAt string `json:"deadline_at" binding:"required"`
}

// UpdateDeadlineRequest represents a partial deadline update
type UpdateDeadlineRequest struct {
	DeadlineAt          *string `json:"deadline_at"`
	NotificationEnabled *bool   `json:"notification_enabled"`
}

// DeadlineResponse is the API representation of a deadline
type DeadlineResponse struct {
	ID                  uint   `json:"id"`
	NoteID              uint   `json:"note_id"`
	DeadlineAt          string `json:"deadline_at"`
	NotificationEnabled bool   `json:"notification_enabled"`
	DaysRemaining       int    `json:"days_remaining"`
	Status              string `json:"status"`
	TimeRemainingText   string `json:"time_remaining_text"`
}
