package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"
	"github.com/TaCeiN/max-task-mvp/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// encodeNoteContent normalizes incoming content to stored JSON. Structured
// content passes through; anything else is stored as a JSON string.
func encodeNoteContent(content string) ([]byte, error) {
	raw := []byte(content)
	if json.Valid(raw) {
		return raw, nil
	}
	return json.Marshal(content)
}

// noteToResponse builds the API view of a note
func noteToResponse(note *models.Note, hasNotifications bool) models.NoteResponse {
	tags := note.Tags
	if tags == nil {
		tags = []models.Tag{}
	}
	return models.NoteResponse{
		ID:                       note.ID,
		Title:                    note.Title,
		Content:                  json.RawMessage(note.Content),
		Kind:                     note.Kind,
		FolderID:                 note.FolderID,
		IsFavorite:               note.IsFavorite,
		Tags:                     tags,
		HasDeadlineNotifications: hasNotifications,
	}
}

// notificationFlags reports, per note ID, whether an enabled deadline exists
func notificationFlags(db *gorm.DB, noteIDs []uint) (map[uint]bool, error) {
	flags := make(map[uint]bool)
	if len(noteIDs) == 0 {
		return flags, nil
	}
	var enabled []uint
	err := db.Model(&models.Deadline{}).
		Where("note_id IN ? AND notification_enabled = ?", noteIDs, true).
		Pluck("note_id", &enabled).Error
	if err != nil {
		return nil, err
	}
	for _, id := range enabled {
		flags[id] = true
	}
	return flags, nil
}

// loadUserNote fetches a note owned by the current user
func loadUserNote(c *gin.Context, userID uint) (*models.Note, bool) {
	noteID, err := strconv.ParseUint(c.Param("note_id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid note ID", err)
		return nil, false
	}

	var note models.Note
	err = database.GetDB().Preload("Tags").
		Where("id = ? AND user_id = ?", noteID, userID).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Note not found", err)
		} else {
			handleError(c, http.StatusInternalServerError, "Failed to fetch note", err)
		}
		return nil, false
	}
	return &note, true
}

// ListNotes returns the user's notes, favorites first then most recently
// updated. Supports folder_id and tag_id filters.
func ListNotes(c *gin.Context) {
	user := auth.CurrentUser(c)
	db := database.GetDB()

	query := db.Preload("Tags").Where("note.user_id = ?", user.ID)
	if folderID := c.Query("folder_id"); folderID != "" {
		id, err := strconv.ParseUint(folderID, 10, 32)
		if err != nil {
			handleError(c, http.StatusBadRequest, "Invalid folder ID", err)
			return
		}
		query = query.Where("folder_id = ?", id)
	}
	if tagID := c.Query("tag_id"); tagID != "" {
		id, err := strconv.ParseUint(tagID, 10, 32)
		if err != nil {
			handleError(c, http.StatusBadRequest, "Invalid tag ID", err)
			return
		}
		query = query.Joins("JOIN note_tag ON note_tag.note_id = note.id").
			Where("note_tag.tag_id = ?", id)
	}

	var notes []models.Note
	if err := query.Order("is_favorite DESC, updated_at DESC").Find(&notes).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch notes", err)
		return
	}

	noteIDs := make([]uint, len(notes))
	for i := range notes {
		noteIDs[i] = notes[i].ID
	}
	flags, err := notificationFlags(db, noteIDs)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch notification state", err)
		return
	}

	responses := make([]models.NoteResponse, 0, len(notes))
	for i := range notes {
		responses = append(responses, noteToResponse(&notes[i], flags[notes[i].ID]))
	}
	c.JSON(http.StatusOK, responses)
}

// GetNote returns a single note
func GetNote(c *gin.Context) {
	user := auth.CurrentUser(c)
	note, ok := loadUserNote(c, user.ID)
	if !ok {
		return
	}

	flags, err := notificationFlags(database.GetDB(), []uint{note.ID})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch notification state", err)
		return
	}
	c.JSON(http.StatusOK, noteToResponse(note, flags[note.ID]))
}

// CreateNote creates a note, classifying its content kind at write time
func CreateNote(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	content, err := encodeNoteContent(req.Content)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid note content", err)
		return
	}

	db := database.GetDB()
	folderID := req.FolderID
	if folderID == nil {
		defaultFolder, err := ensureDefaultFolder(db, user.ID)
		if err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to prepare default folder", err)
			return
		}
		folderID = &defaultFolder.ID
	}

	note := models.Note{
		UserID:   user.ID,
		FolderID: folderID,
		Title:    req.Title,
		Content:  content,
		Kind:     models.DetectNoteKind(content),
	}
	if err := db.Create(&note).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create note", err)
		return
	}

	if req.TagsText != "" {
		if err := syncTagsFromText(db, &note, req.TagsText); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to attach tags", err)
			return
		}
	}

	db.Preload("Tags").First(&note, note.ID)
	c.JSON(http.StatusCreated, noteToResponse(&note, false))
}

// UpdateNote applies a partial update, re-classifying the kind when the
// content changes
func UpdateNote(c *gin.Context) {
	user := auth.CurrentUser(c)
	note, ok := loadUserNote(c, user.ID)
	if !ok {
		return
	}

	var req models.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		content, err := encodeNoteContent(*req.Content)
		if err != nil {
			handleError(c, http.StatusBadRequest, "Invalid note content", err)
			return
		}
		note.Content = content
		note.Kind = models.DetectNoteKind(content)
	}
	if req.FolderID != nil {
		note.FolderID = req.FolderID
	}

	db := database.GetDB()
	if err := db.Save(note).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update note", err)
		return
	}

	if req.TagsText != nil {
		if err := syncTagsFromText(db, note, *req.TagsText); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to update tags", err)
			return
		}
	}

	db.Preload("Tags").First(note, note.ID)
	flags, err := notificationFlags(db, []uint{note.ID})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch notification state", err)
		return
	}
	c.JSON(http.StatusOK, noteToResponse(note, flags[note.ID]))
}

// ToggleFavorite flips the favorite flag. A user has at most one favorite
// note, so favoriting clears the flag on every other note of that user.
// Unfavoriting pins updated_at just above created_at so the toggle never
// promotes the note in the recency order; favoriting leaves timestamps alone.
func ToggleFavorite(c *gin.Context) {
	user := auth.CurrentUser(c)
	note, ok := loadUserNote(c, user.ID)
	if !ok {
		return
	}

	newValue := !note.IsFavorite
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if newValue {
			if err := tx.Model(&models.Note{}).
				Where("user_id = ? AND id <> ? AND is_favorite = ?", user.ID, note.ID, true).
				UpdateColumn("is_favorite", false).Error; err != nil {
				return err
			}
			return tx.Model(note).UpdateColumn("is_favorite", true).Error
		}
		return tx.Model(note).UpdateColumns(map[string]interface{}{
			"is_favorite": false,
			"updated_at":  note.CreatedAt.Add(time.Second),
		}).Error
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to toggle favorite", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": note.ID, "is_favorite": newValue})
}

// GetFavorite returns the user's favorite note, or null when none is set
func GetFavorite(c *gin.Context) {
	user := auth.CurrentUser(c)
	db := database.GetDB()

	var note models.Note
	err := db.Preload("Tags").
		Where("user_id = ? AND is_favorite = ?", user.ID, true).
		First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, nil)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to fetch favorite", err)
		return
	}

	flags, err := notificationFlags(db, []uint{note.ID})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch notification state", err)
		return
	}
	c.JSON(http.StatusOK, noteToResponse(&note, flags[note.ID]))
}

// DeleteNote removes a note together with its deadline and tag links
func DeleteNote(c *gin.Context) {
	user := auth.CurrentUser(c)
	note, ok := loadUserNote(c, user.ID)
	if !ok {
		return
	}

	db := database.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		var deadline models.Deadline
		err := tx.Where("note_id = ?", note.ID).First(&deadline).Error
		if err == nil {
			if err := tx.Where("deadline_id = ?", deadline.ID).
				Delete(&models.NotificationRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&deadline).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Select("Tags").Delete(note).Error
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete note", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Note deleted"})
}

// SearchNotes runs combined substring and trigram search over the user's notes
func SearchNotes(c *gin.Context) {
	user := auth.CurrentUser(c)

	term := c.Query("q")
	if term == "" {
		handleError(c, http.StatusBadRequest, "Search query is required",
			errors.New("empty search term"))
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			handleError(c, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	searcher := services.NewSearchService()
	notes, err := searcher.SearchNotes(user.ID, term, limit)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Search failed", err)
		return
	}

	noteIDs := make([]uint, len(notes))
	for i := range notes {
		noteIDs[i] = notes[i].ID
	}
	flags, err := notificationFlags(database.GetDB(), noteIDs)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch notification state", err)
		return
	}

	responses := make([]models.NoteResponse, 0, len(notes))
	for i := range notes {
		responses = append(responses, noteToResponse(&notes[i], flags[notes[i].ID]))
	}
	c.JSON(http.StatusOK, responses)
}
