package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/TaCeiN/max-task-mvp/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEncodeNoteContent(t *testing.T) {
	raw, err := encodeNoteContent(`{"type":"todo","items":[]}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"todo","items":[]}`, string(raw))

	raw, err = encodeNoteContent("обычный текст")
	require.NoError(t, err)
	assert.Equal(t, `"обычный текст"`, string(raw))
	assert.Equal(t, models.NoteKindPlain, models.DetectNoteKind(raw))
}

func createTestNote(t *testing.T, db *gorm.DB, userID uint, title string) models.Note {
	t.Helper()
	note := models.Note{UserID: userID, Title: title, Content: []byte(`"x"`), Kind: models.NoteKindPlain}
	require.NoError(t, db.Create(&note).Error)
	return note
}

func toggleFavorite(t *testing.T, user *models.User, noteID uint) int {
	t.Helper()
	c, w := newAuthedContext(t, user, http.MethodPost, "")
	c.Params = gin.Params{{Key: "note_id", Value: fmt.Sprint(noteID)}}
	ToggleFavorite(c)
	return w.Code
}

func TestToggleFavoriteKeepsSingleFavorite(t *testing.T) {
	db := setupHandlerDB(t)
	user := models.User{Username: "fav-user", UUID: "100"}
	require.NoError(t, db.Create(&user).Error)
	first := createTestNote(t, db, user.ID, "first")
	second := createTestNote(t, db, user.ID, "second")

	require.Equal(t, http.StatusOK, toggleFavorite(t, &user, first.ID))
	require.Equal(t, http.StatusOK, toggleFavorite(t, &user, second.ID))

	// Favoriting the second note cleared the first
	var got models.Note
	require.NoError(t, db.First(&got, first.ID).Error)
	assert.False(t, got.IsFavorite)
	got = models.Note{}
	require.NoError(t, db.First(&got, second.ID).Error)
	assert.True(t, got.IsFavorite)

	// Favoriting never promotes the note in the recency order
	assert.WithinDuration(t, second.UpdatedAt, got.UpdatedAt, 50*time.Millisecond)
}

func TestUnfavoritePinsUpdatedAt(t *testing.T) {
	db := setupHandlerDB(t)
	user := models.User{Username: "fav-user", UUID: "100"}
	require.NoError(t, db.Create(&user).Error)
	note := createTestNote(t, db, user.ID, "note")

	require.Equal(t, http.StatusOK, toggleFavorite(t, &user, note.ID))
	require.Equal(t, http.StatusOK, toggleFavorite(t, &user, note.ID))

	var got models.Note
	require.NoError(t, db.First(&got, note.ID).Error)
	assert.False(t, got.IsFavorite)
	assert.InDelta(t, float64(time.Second), float64(got.UpdatedAt.Sub(got.CreatedAt)), float64(50*time.Millisecond))
}

func TestGetFavoriteSingleOrNull(t *testing.T) {
	db := setupHandlerDB(t)
	user := models.User{Username: "fav-user", UUID: "100"}
	require.NoError(t, db.Create(&user).Error)

	c, w := newAuthedContext(t, &user, http.MethodGet, "")
	GetFavorite(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	note := createTestNote(t, db, user.ID, "the one")
	require.Equal(t, http.StatusOK, toggleFavorite(t, &user, note.ID))

	c, w = newAuthedContext(t, &user, http.MethodGet, "")
	GetFavorite(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"the one"`)
	assert.Contains(t, w.Body.String(), `"is_favorite":true`)
}

func TestNoteToResponseNilTags(t *testing.T) {
	note := models.Note{ID: 3, Title: "t", Content: []byte(`"x"`), Kind: models.NoteKindPlain}
	resp := noteToResponse(&note, true)
	assert.NotNil(t, resp.Tags)
	assert.Empty(t, resp.Tags)
	assert.True(t, resp.HasDeadlineNotifications)
	assert.Equal(t, `"x"`, string(resp.Content))
}
