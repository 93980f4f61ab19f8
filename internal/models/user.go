package models

import (
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxReminderTimes is the maximum number of reminder offsets a user may configure.
const MaxReminderTimes = 10

// DefaultReminderMinutes is used when a user has no configured reminder schedule.
const DefaultReminderMinutes = 30

// User represents a mini-app user. UUID is the user id assigned by the
// messenger platform and is what notifications are addressed to.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:128;not null" json:"username"`
	UUID      string    `gorm:"uniqueIndex;size:64;not null" json:"uuid"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// UserSettings holds per-user preferences, including the reminder schedule
// (minute offsets before a deadline at which notifications fire).
type UserSettings struct {
	ID              uint                     `gorm:"primaryKey" json:"-"`
	UserID          uint                     `gorm:"uniqueIndex;not null;constraint:OnDelete:CASCADE" json:"-"`
	Language        string                   `gorm:"size:2;not null;default:ru" json:"language"`
	Theme           string                   `gorm:"size:10;not null;default:dark" json:"theme"`
	ReminderMinutes datatypes.JSONSlice[int] `gorm:"not null" json:"notification_times_minutes"`
	CreatedAt       time.Time                `gorm:"not null" json:"-"`
	UpdatedAt       time.Time                `gorm:"not null" json:"-"`
}

// BeforeCreate hook fills defaults for new settings rows
func (s *UserSettings) BeforeCreate(tx *gorm.DB) error {
	if s.Language == "" {
		s.Language = "ru"
	}
	if s.Theme == "" {
		s.Theme = "dark"
	}
	if len(s.ReminderMinutes) == 0 {
		s.ReminderMinutes = datatypes.NewJSONSlice([]int{DefaultReminderMinutes})
	}
	return nil
}

// NormalizeReminderMinutes deduplicates and sorts minute offsets ascending.
func NormalizeReminderMinutes(minutes []int) []int {
	seen := make(map[int]bool, len(minutes))
	out := make([]int, 0, len(minutes))
	for _, m := range minutes {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Ints(out)
	return out
}

// SameReminderMinutes compares two schedules by value set, ignoring order and
// duplicates. Used to decide whether a settings update actually changed the
// schedule before invalidating sent-notification state.
func SameReminderMinutes(a, b []int) bool {
	na := NormalizeReminderMinutes(a)
	nb := NormalizeReminderMinutes(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

// RegisterRequest represents the data needed to register a user directly
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=128"`
	UUID     string `json:"uuid" binding:"required"`
}

// LoginRequest represents the data needed for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	UUID     string `json:"uuid" binding:"required"`
}

// WebAppInitRequest carries the raw initData blob from the messenger mini-app
type WebAppInitRequest struct {
	InitData string `json:"initData" binding:"required"`
}

// UpdateSettingsRequest represents a partial settings update
type UpdateSettingsRequest struct {
	Language        *string `json:"language"`
	Theme           *string `json:"theme"`
	ReminderMinutes *[]int  `json:"notification_times_minutes"`
}
