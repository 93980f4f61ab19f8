package handlers

import (
	"errors"
	"fmt"
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

// deadlineToResponse builds the API view of a deadline relative to now
func deadlineToResponse(d *models.Deadline, now time.Time) models.DeadlineResponse {
	info := d.Info(now)
	return models.DeadlineResponse{
		ID:                  d.ID,
		NoteID:              d.NoteID,
		DeadlineAt:          d.DueAt.UTC().Format(time.RFC3339),
		NotificationEnabled: d.NotificationEnabled,
		DaysRemaining:       info.DaysRemaining,
		Status:              info.Status,
		TimeRemainingText:   info.TimeRemainingText,
	}
}

// loadUserDeadline fetches a deadline owned by the current user
func loadUserDeadline(c *gin.Context, userID uint) (*models.Deadline, bool) {
	deadlineID, err := strconv.ParseUint(c.Param("deadline_id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid deadline ID", err)
		return nil, false
	}

	var deadline models.Deadline
	err = database.GetDB().
		Where("id = ? AND user_id = ?", deadlineID, userID).First(&deadline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Deadline not found", err)
		} else {
			handleError(c, http.StatusInternalServerError, "Failed to fetch deadline", err)
		}
		return nil, false
	}
	return &deadline, true
}

// CreateDeadline attaches a deadline to a todo note. A note can carry at
// most one deadline and the due time must be in the future.
func CreateDeadline(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.CreateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	var note models.Note
	err := db.Where("id = ? AND user_id = ?", req.NoteID, user.ID).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Note not found", err)
		} else {
			handleError(c, http.StatusInternalServerError, "Failed to fetch note", err)
		}
		return
	}
	if !note.IsTodo() {
		handleError(c, http.StatusBadRequest, "Deadlines can only be attached to todo notes",
			fmt.Errorf("note %d has kind %s", note.ID, note.Kind))
		return
	}

	dueAt, err := parseDeadlineTime(req.DeadlineAt)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid deadline date format", err)
		return
	}
	now := time.Now().UTC()
	if !dueAt.After(now) {
		handleError(c, http.StatusBadRequest, "Deadline cannot be in the past",
			fmt.Errorf("due %s is not after %s", dueAt, now))
		return
	}

	deadline := models.Deadline{
		NoteID:              note.ID,
		UserID:              user.ID,
		DueAt:               dueAt,
		NotificationEnabled: true,
	}
	if err := db.Create(&deadline).Error; err != nil {
		if isDuplicateKeyError(err) {
			handleError(c, http.StatusConflict, "Note already has a deadline", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to create deadline", err)
		return
	}

	c.JSON(http.StatusCreated, deadlineToResponse(&deadline, now))
}

// ListDeadlines returns every deadline of the current user, soonest first
func ListDeadlines(c *gin.Context) {
	user := auth.CurrentUser(c)

	var deadlines []models.Deadline
	err := database.GetDB().
		Where("user_id = ?", user.ID).Order("due_at ASC").Find(&deadlines).Error
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch deadlines", err)
		return
	}

	now := time.Now().UTC()
	responses := make([]models.DeadlineResponse, 0, len(deadlines))
	for i := range deadlines {
		responses = append(responses, deadlineToResponse(&deadlines[i], now))
	}
	c.JSON(http.StatusOK, responses)
}

// GetNoteDeadline returns the deadline of one note, if any
func GetNoteDeadline(c *gin.Context) {
	user := auth.CurrentUser(c)

	noteID, err := strconv.ParseUint(c.Param("note_id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid note ID", err)
		return
	}

	var deadline models.Deadline
	err = database.GetDB().
		Where("note_id = ? AND user_id = ?", noteID, user.ID).First(&deadline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Deadline not found", err)
		} else {
			handleError(c, http.StatusInternalServerError, "Failed to fetch deadline", err)
		}
		return
	}

	c.JSON(http.StatusOK, deadlineToResponse(&deadline, time.Now().UTC()))
}

// UpdateDeadline applies a partial update. Moving the due time by more than a
// second, or re-enabling notifications, wipes the sent-notification records so
// thresholds are recomputed against the new schedule.
func UpdateDeadline(c *gin.Context) {
	user := auth.CurrentUser(c)
	deadline, ok := loadUserDeadline(c, user.ID)
	if !ok {
		return
	}

	var req models.UpdateDeadlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	resetRecords := false

	if req.DeadlineAt != nil {
		dueAt, err := parseDeadlineTime(*req.DeadlineAt)
		if err != nil {
			handleError(c, http.StatusBadRequest, "Invalid deadline date format", err)
			return
		}
		delta := dueAt.Sub(deadline.DueAt)
		if delta < 0 {
			delta = -delta
		}
		if delta > time.Second {
			resetRecords = true
		}
		deadline.DueAt = dueAt
	}
	if req.NotificationEnabled != nil {
		if *req.NotificationEnabled && !deadline.NotificationEnabled {
			resetRecords = true
		}
		deadline.NotificationEnabled = *req.NotificationEnabled
	}

	if err := db.Save(deadline).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update deadline", err)
		return
	}
	if resetRecords {
		if err := services.ResetDeadlineNotifications(db, deadline.ID); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to reset notifications", err)
			return
		}
	}

	c.JSON(http.StatusOK, deadlineToResponse(deadline, time.Now().UTC()))
}

// ToggleNotifications flips the notification flag for a deadline
func ToggleNotifications(c *gin.Context) {
	user := auth.CurrentUser(c)
	deadline, ok := loadUserDeadline(c, user.ID)
	if !ok {
		return
	}

	db := database.GetDB()
	deadline.NotificationEnabled = !deadline.NotificationEnabled
	if err := db.Save(deadline).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to toggle notifications", err)
		return
	}

	// Re-enabling starts the reminder ladder over for the current schedule
	if deadline.NotificationEnabled {
		if err := services.ResetDeadlineNotifications(db, deadline.ID); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to reset notifications", err)
			return
		}
	}

	c.JSON(http.StatusOK, deadlineToResponse(deadline, time.Now().UTC()))
}

// DeleteDeadline removes a deadline together with its notification records
func DeleteDeadline(c *gin.Context) {
	user := auth.CurrentUser(c)
	deadline, ok := loadUserDeadline(c, user.ID)
	if !ok {
		return
	}

	db := database.GetDB()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("deadline_id = ?", deadline.ID).
			Delete(&models.NotificationRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(deadline).Error
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete deadline", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deadline deleted"})
}

// NewTestNotificationHandler returns a handler that sends a manual reminder
// for one deadline through the bot, bypassing the scanner. No notification
// record is written: a manual send must not consume a threshold.
func NewTestNotificationHandler(bot services.Sender, tracker *services.MessageTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		deadline, ok := loadUserDeadline(c, user.ID)
		if !ok {
			return
		}

		var note models.Note
		if err := database.GetDB().First(&note, deadline.NoteID).Error; err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to fetch note", err)
			return
		}

		now := time.Now().UTC()
		var text string
		if deadline.DueAt.Before(now) {
			overdue := int(now.Sub(deadline.DueAt) / time.Minute)
			if overdue < 1 {
				overdue = 1
			}
			text = fmt.Sprintf("Ручная отправка: Дедлайн %q просрочен на %s",
				note.Title, services.FormatTimeRemaining(overdue))
		} else {
			remaining := int(deadline.DueAt.Sub(now) / time.Minute)
			if remaining < 1 {
				remaining = 1
			}
			text = fmt.Sprintf("Ручная отправка: До окончания дедлайна %q осталось %s",
				note.Title, services.FormatTimeRemaining(remaining))
		}

		result, err := bot.SendMessage(user.UUID, text, "")
		if err != nil {
			status, message := classifySendFailure(err)
			handleError(c, status, message, err)
			return
		}

		if result.MessageID != "" {
			tracker.Track(result.MessageID, user.UUID, text)
		}
		c.JSON(http.StatusOK, gin.H{"message": "Notification sent", "text": text})
	}
}

// classifySendFailure maps a bot send error to an HTTP status and a message
// the mini-app can show the user
func classifySendFailure(err error) (int, string) {
	var sendErr *services.SendError
	if !errors.As(err, &sendErr) {
		return http.StatusInternalServerError, "Failed to send notification"
	}
	switch sendErr.Kind {
	case services.SendErrorChatDenied:
		return http.StatusForbidden, "Бот не может написать вам. Откройте диалог с ботом и нажмите «Начать»"
	case services.SendErrorNoToken:
		return http.StatusServiceUnavailable, "Бот не настроен"
	case services.SendErrorNetwork:
		return http.StatusBadGateway, "Не удалось связаться с сервером сообщений"
	default:
		return http.StatusInternalServerError, "Failed to send notification"
	}
}
