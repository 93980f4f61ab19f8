package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ensureDefaultFolder returns the user's default folder, creating it lazily
// on first access
func ensureDefaultFolder(db *gorm.DB, userID uint) (*models.Folder, error) {
	var folder models.Folder
	err := db.Where("user_id = ? AND is_default = ?", userID, true).First(&folder).Error
	if err == nil {
		return &folder, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	folder = models.Folder{UserID: userID, Name: models.DefaultFolderName, IsDefault: true}
	if err := db.Create(&folder).Error; err != nil {
		return nil, err
	}
	return &folder, nil
}

// ListFolders returns the user's folders with the default folder first
func ListFolders(c *gin.Context) {
	user := auth.CurrentUser(c)
	db := database.GetDB()

	if _, err := ensureDefaultFolder(db, user.ID); err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to prepare folders", err)
		return
	}

	var folders []models.Folder
	err := db.Where("user_id = ?", user.ID).
		Order("is_default DESC, name ASC").Find(&folders).Error
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to fetch folders", err)
		return
	}

	c.JSON(http.StatusOK, folders)
}

// CreateFolder creates a regular (non-default) folder
func CreateFolder(c *gin.Context) {
	user := auth.CurrentUser(c)

	var req models.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	folder := models.Folder{UserID: user.ID, Name: req.Name}
	if err := database.GetDB().Create(&folder).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create folder", err)
		return
	}

	c.JSON(http.StatusCreated, folder)
}

// loadUserFolder fetches a folder owned by the current user
func loadUserFolder(c *gin.Context, userID uint) (*models.Folder, bool) {
	folderID, err := strconv.ParseUint(c.Param("folder_id"), 10, 32)
	if err != nil {
		handleError(c, http.StatusBadRequest, "Invalid folder ID", err)
		return nil, false
	}

	var folder models.Folder
	err = database.GetDB().
		Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusNotFound, "Folder not found", err)
		} else {
			handleError(c, http.StatusInternalServerError, "Failed to fetch folder", err)
		}
		return nil, false
	}
	return &folder, true
}

// UpdateFolder renames a folder. The default folder is protected.
func UpdateFolder(c *gin.Context) {
	user := auth.CurrentUser(c)
	folder, ok := loadUserFolder(c, user.ID)
	if !ok {
		return
	}

	if folder.IsDefault {
		handleError(c, http.StatusBadRequest, "Default folder cannot be renamed",
			errors.New("attempt to rename default folder"))
		return
	}

	var req models.UpdateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	folder.Name = req.Name
	if err := database.GetDB().Save(folder).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update folder", err)
		return
	}

	c.JSON(http.StatusOK, folder)
}

// DeleteFolder removes a folder, moving its notes into the default folder
func DeleteFolder(c *gin.Context) {
	user := auth.CurrentUser(c)
	folder, ok := loadUserFolder(c, user.ID)
	if !ok {
		return
	}

	if folder.IsDefault {
		handleError(c, http.StatusBadRequest, "Default folder cannot be deleted",
			errors.New("attempt to delete default folder"))
		return
	}

	db := database.GetDB()
	defaultFolder, err := ensureDefaultFolder(db, user.ID)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to prepare default folder", err)
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Note{}).
			Where("folder_id = ? AND user_id = ?", folder.ID, user.ID).
			Update("folder_id", defaultFolder.ID).Error; err != nil {
			return err
		}
		return tx.Delete(folder).Error
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to delete folder", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Folder deleted"})
}
