package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Note kinds. The kind is decided once when the content is written, so the
// notification scanner never has to re-parse serialized content on a tick.
const (
	NoteKindPlain = "plain"
	NoteKindTodo  = "todo"
)

// Folder groups notes. Every user gets a default "Все" folder that cannot be
// renamed or deleted.
type Folder struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

// DefaultFolderName is the name of the per-user default folder
const DefaultFolderName = "Все"

// Tag represents a hashtag shared across notes and tasks
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Color string `gorm:"size:7" json:"color"` // hex color like #FF5733
}

// TodoItem is one checklist entry inside a todo note
type TodoItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// NoteContent is the tagged content variant stored in Note.Content.
// Type "todo" carries Items; anything else is treated as plain text.
type NoteContent struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	Items []TodoItem `json:"items,omitempty"`
}

// Note represents a note in the system
type Note struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"index;not null" json:"-"`
	FolderID   *uint          `gorm:"index" json:"folder_id"`
	Title      string         `gorm:"size:200;not null" json:"title"`
	Content    datatypes.JSON `json:"content"`
	Kind       string         `gorm:"size:10;not null;default:plain" json:"kind"`
	IsFavorite bool           `gorm:"index;not null;default:false" json:"is_favorite"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`

	Folder   *Folder   `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Tags     []Tag     `gorm:"many2many:note_tag;constraint:OnDelete:CASCADE" json:"tags"`
	Deadline *Deadline `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// DetectNoteKind classifies raw note content. A note is a todo note only when
// the content parses as JSON with type "todo" and an items array.
func DetectNoteKind(raw []byte) string {
	if len(raw) == 0 {
		return NoteKindPlain
	}
	var content NoteContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return NoteKindPlain
	}
	if content.Type == NoteKindTodo && content.Items != nil {
		return NoteKindTodo
	}
	return NoteKindPlain
}

// IsTodo reports whether the note holds task-list content
func (n *Note) IsTodo() bool {
	return n.Kind == NoteKindTodo
}

// ParsedContent decodes the stored content variant
func (n *Note) ParsedContent() (NoteContent, error) {
	var content NoteContent
	if len(n.Content) == 0 {
		return content, nil
	}
	err := json.Unmarshal(n.Content, &content)
	return content, err
}

// CreateNoteRequest represents the data needed to create a note
type CreateNoteRequest struct {
	Title    string `json:"title" binding:"required,max=200"`
	Content  string `json:"content"`
	FolderID *uint  `json:"folder_id"`
	TagsText string `json:"tags_text"`
}

// UpdateNoteRequest represents a partial note update
type UpdateNoteRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	FolderID *uint   `json:"folder_id"`
	TagsText *string `json:"tags_text"`
}

// NoteResponse is the API representation of a note
type NoteResponse struct {
	ID                       uint            `json:"id"`
	Title                    string          `json:"title"`
	Content                  json.RawMessage `json:"content"`
	Kind                     string          `json:"kind"`
	FolderID                 *uint           `json:"folder_id"`
	IsFavorite               bool            `json:"is_favorite"`
	Tags                     []Tag           `json:"tags"`
	HasDeadlineNotifications bool            `json:"has_deadline_notifications"`
}

// CreateFolderRequest represents the data needed to create a folder
type CreateFolderRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// UpdateFolderRequest represents a folder rename
type UpdateFolderRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}
