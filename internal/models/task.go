package models

import "time"

// Task represents a standalone task (not attached to a note)
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"-"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	DueAt       *time.Time `json:"due_at"`
	IsCompleted bool       `gorm:"not null;default:false" json:"is_completed"`
	CreatedAt   time.Time  `gorm:"not null" json:"created_at"`

	Tags []Tag `gorm:"many2many:task_tag;constraint:OnDelete:CASCADE" json:"tags"`
}

// CreateTaskRequest represents the data needed to create a task
type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required,max=200"`
	Description string  `json:"description"`
	DueAt       *string `json:"due_at"`
	TagsText    string  `json:"tags_text"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueAt       *string `json:"due_at"`
	IsCompleted *bool   `json:"is_completed"`
	TagsText    *string `json:"tags_text"`
}
