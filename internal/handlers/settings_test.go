package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/TaCeiN/max-task-mvp/internal/models"
	"github.com/TaCeiN/max-task-mvp/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSettingsRejectsUnknownLanguageAndTheme(t *testing.T) {
	db := setupHandlerDB(t)
	user := models.User{Username: "settings-user", UUID: "200"}
	require.NoError(t, db.Create(&user).Error)

	for _, body := range []string{
		`{"language":"fr"}`,
		`{"language":"russian"}`,
		`{"theme":"solarized"}`,
	} {
		c, w := newAuthedContext(t, &user, http.MethodPut, body)
		UpdateSettings(c)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body=%s", body)
	}

	c, w := newAuthedContext(t, &user, http.MethodPut, `{"language":"en","theme":"light"}`)
	UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)

	var settings models.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&settings).Error)
	assert.Equal(t, "en", settings.Language)
	assert.Equal(t, "light", settings.Theme)
}

func TestUpdateSettingsEmptyScheduleFallsBackToLadder(t *testing.T) {
	db := setupHandlerDB(t)
	user := models.User{Username: "settings-user", UUID: "200"}
	require.NoError(t, db.Create(&user).Error)

	c, w := newAuthedContext(t, &user, http.MethodPut, `{"notification_times_minutes":[60,30]}`)
	UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newAuthedContext(t, &user, http.MethodPut, `{"notification_times_minutes":[]}`)
	UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)

	var settings models.UserSettings
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&settings).Error)
	assert.Empty(t, []int(settings.ReminderMinutes))

	// An empty schedule means the full default ladder, not a lone offset
	gradations := services.ResolveGradations(settings.ReminderMinutes)
	require.Len(t, gradations, 9)
	assert.Equal(t, "14d", gradations[0].Tag)
	assert.Equal(t, "30m", gradations[8].Tag)
}

func TestUpdateSettingsScheduleChangeResetsRecords(t *testing.T) {
	db := setupHandlerDB(t)
	user := models.User{Username: "settings-user", UUID: "200"}
	require.NoError(t, db.Create(&user).Error)

	deadline := models.Deadline{NoteID: 1, UserID: user.ID, DueAt: time.Now().UTC().Add(time.Hour), NotificationEnabled: true}
	require.NoError(t, db.Create(&deadline).Error)
	for _, tag := range []string{"1h", models.NotificationTagExpired} {
		record := models.NotificationRecord{DeadlineID: deadline.ID, Tag: tag, SentAt: time.Now().UTC()}
		require.NoError(t, db.Create(&record).Error)
	}

	c, w := newAuthedContext(t, &user, http.MethodPut, `{"notification_times_minutes":[60,30]}`)
	UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)

	var tags []string
	require.NoError(t, db.Model(&models.NotificationRecord{}).
		Where("deadline_id = ?", deadline.ID).Pluck("tag", &tags).Error)
	assert.Equal(t, []string{models.NotificationTagExpired}, tags)

	// Re-submitting the same set in a different order must not reset anything
	record := models.NotificationRecord{DeadlineID: deadline.ID, Tag: "30m", SentAt: time.Now().UTC()}
	require.NoError(t, db.Create(&record).Error)

	c, w = newAuthedContext(t, &user, http.MethodPut, `{"notification_times_minutes":[30,60]}`)
	UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)

	tags = nil
	require.NoError(t, db.Model(&models.NotificationRecord{}).
		Where("deadline_id = ?", deadline.ID).Order("tag").Pluck("tag", &tags).Error)
	assert.Equal(t, []string{"30m", models.NotificationTagExpired}, tags)
}
