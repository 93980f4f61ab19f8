package handlers

import (
	"hash/fnv"
	"net/http"
	"regexp"
	"strings"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var hashtagPattern = regexp.MustCompile(`#([A-Za-zА-Яа-яЁё0-9_]+)`)

// tagPalette holds the fixed set of colors assigned to tags
var tagPalette = []string{
	"#e57373", "#f06292", "#ba68c8", "#9575cd", "#7986cb",
	"#64b5f6", "#4fc3f7", "#4dd0e1", "#4db6ac", "#81c784",
	"#aed581", "#dce775", "#fff176", "#ffd54f", "#ffb74d",
	"#ff8a65", "#a1887f", "#90a4ae", "#f48fb1", "#80cbc4",
}

// tagColor picks a stable palette color for a tag name
func tagColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(name))
	return tagPalette[h.Sum32()%uint32(len(tagPalette))]
}

// extractHashtags collects lowercased #tag names from free text,
// preserving first-seen order
func extractHashtags(text string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, match := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		name := strings.ToLower(match[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// getOrCreateTags resolves tag names to rows, creating missing ones.
// Concurrent creates of the same name fall back to a re-fetch.
func getOrCreateTags(db *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		var tag models.Tag
		err := db.Where("name = ?", name).First(&tag).Error
		if err == nil {
			tags = append(tags, tag)
			continue
		}
		tag = models.Tag{Name: name, Color: tagColor(name)}
		if createErr := db.Create(&tag).Error; createErr != nil {
			if fetchErr := db.Where("name = ?", name).First(&tag).Error; fetchErr != nil {
				return nil, createErr
			}
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// syncTagsFromText rewrites an item's tag associations from hashtags in text.
// model must be a *models.Note or *models.Task already loaded from the DB.
func syncTagsFromText(db *gorm.DB, model interface{}, text string) error {
	tags, err := getOrCreateTags(db, extractHashtags(text))
	if err != nil {
		return err
	}
	return db.Model(model).Association("Tags").Replace(tags)
}

// ListTags returns the tags attached to the current user's notes and tasks
func ListTags(c *gin.Context) {
	user := auth.CurrentUser(c)
	db := database.GetDB()

	var tags []models.Tag
	err := db.Raw(`
		SELECT DISTINCT t.* FROM tag t
		JOIN note_tag nt ON nt.tag_id = t.id
		JOIN note n ON n.id = nt.note_id
		WHERE n.user_id = ?
		UNION
		SELECT DISTINCT t.* FROM tag t
		JOIN task_tag tt ON tt.tag_id = t.id
		JOIN task ts ON ts.id = tt.task_id
		WHERE ts.user_id = ?
		ORDER BY name`, user.ID, user.ID).Scan(&tags).Error
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch tags", err)
		return
	}

	if tags == nil {
		tags = []models.Tag{}
	}
	c.JSON(http.StatusOK, tags)
}
