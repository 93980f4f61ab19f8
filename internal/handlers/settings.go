package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"
	"github.com/TaCeiN/max-task-mvp/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// loadOrCreateSettings returns the user's settings row, creating defaults on
// first access
func loadOrCreateSettings(db *gorm.DB, userID uint) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := db.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	settings = models.UserSettings{UserID: userID}
	if err := db.Create(&settings).Error; err != nil {
		if isDuplicateKeyError(err) {
			if err2 := db.Where("user_id = ?", userID).First(&settings).Error; err2 == nil {
				return &settings, nil
			}
		}
		return nil, err
	}
	return &settings, nil
}

// GetSettings returns the current user's settings, creating defaults if needed
func GetSettings(c *gin.Context) {
	user := auth.CurrentUser(c)

	settings, err := loadOrCreateSettings(database.GetDB(), user.ID)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch settings", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

var (
	validLanguages = map[string]bool{"ru": true, "en": true}
	validThemes    = map[string]bool{"light": true, "dark": true}
)

// validateReminderMinutes checks a reminder schedule from the client
func validateReminderMinutes(minutes []int) error {
	if len(minutes) > models.MaxReminderTimes {
		return fmt.Errorf("at most %d reminder times allowed, got %d",
			models.MaxReminderTimes, len(minutes))
	}
	for _, m := range minutes {
		if m < 0 {
			return fmt.Errorf("reminder offset %d is negative", m)
		}
	}
	return nil
}

// UpdateSettings applies a partial settings update. Changing the reminder
// schedule wipes the user's sent-notification records so the scanner
// recomputes thresholds; reordering or duplicating the same offsets does not.
func UpdateSettings(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	settings, err := loadOrCreateSettings(db, user.ID)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch settings", err)
		return
	}

	if req.Language != nil {
		if !validLanguages[*req.Language] {
			handleError(c, http.StatusBadRequest, "Language must be one of: ru, en",
				fmt.Errorf("unsupported language %q", *req.Language))
			return
		}
		settings.Language = *req.Language
	}
	if req.Theme != nil {
		if !validThemes[*req.Theme] {
			handleError(c, http.StatusBadRequest, "Theme must be one of: light, dark",
				fmt.Errorf("unsupported theme %q", *req.Theme))
			return
		}
		settings.Theme = *req.Theme
	}

	scheduleChanged := false
	if req.ReminderMinutes != nil {
		if err := validateReminderMinutes(*req.ReminderMinutes); err != nil {
			handleError(c, http.StatusBadRequest, err.Error(), err)
			return
		}
		// An explicitly empty schedule is stored as-is; the scanner then
		// falls back to the full default ladder, not a lone default offset
		normalized := models.NormalizeReminderMinutes(*req.ReminderMinutes)
		scheduleChanged = !models.SameReminderMinutes(settings.ReminderMinutes, normalized)
		settings.ReminderMinutes = datatypes.NewJSONSlice(normalized)
	}

	if err := db.Save(settings).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update settings", err)
		return
	}

	if scheduleChanged {
		if err := services.ResetUserNotifications(db, user.ID); err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to reset notifications", err)
			return
		}
	}

	c.JSON(http.StatusOK, settings)
}
