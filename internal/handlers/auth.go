package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Register handles direct user registration
func Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := database.GetDB()
	user := models.User{Username: req.Username, UUID: req.UUID}
	if err := db.Create(&user).Error; err != nil {
		if isDuplicateKeyError(err) {
			handleError(c, http.StatusConflict, "Username or UUID already registered", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login authenticates by username + platform UUID and issues a JWT
func Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid login request", err)
		return
	}

	db := database.GetDB()
	var user models.User
	if err := db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			handleError(c, http.StatusUnauthorized, "Invalid credentials", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Login attempt failed", err)
		return
	}

	if user.UUID != req.UUID {
		handleError(c, http.StatusUnauthorized, "Invalid credentials",
			fmt.Errorf("uuid mismatch for user %s", req.Username))
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// initDataUser is the user object embedded in mini-app initData
type initDataUser struct {
	UserID    json.Number `json:"user_id"`
	ID        json.Number `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Name      string      `json:"name"`
	Username  string      `json:"username"`
}

func (u *initDataUser) platformID() string {
	if u.UserID != "" {
		return u.UserID.String()
	}
	return u.ID.String()
}

// displayName assembles a username the way the mini-app presents users
func (u *initDataUser) displayName() string {
	first := u.FirstName
	if first == "" {
		first = u.Name
	}
	switch {
	case first != "" && u.LastName != "":
		return strings.TrimSpace(first + " " + u.LastName)
	case first != "":
		return first
	case u.Username != "":
		return u.Username
	default:
		return "user_" + u.platformID()
	}
}

// parseInitData extracts the user from a WebApp initData blob, which arrives
// either as JSON or as a URL-encoded query string with a JSON "user" value.
func parseInitData(raw string) (*initDataUser, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("initData is empty")
	}

	var userJSON []byte
	if strings.HasPrefix(raw, "{") {
		var payload struct {
			User json.RawMessage `json:"user"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("malformed JSON in initData: %w", err)
		}
		if len(payload.User) > 0 {
			userJSON = payload.User
		} else {
			// Some clients put the user fields at the top level
			userJSON = []byte(raw)
		}
	} else {
		values, err := url.ParseQuery(raw)
		if err != nil {
			return nil, fmt.Errorf("unsupported initData format: %w", err)
		}
		userValue := values.Get("user")
		if userValue == "" {
			return nil, errors.New("no user in initData")
		}
		userJSON = []byte(userValue)
	}

	// The user value itself may be a JSON-encoded string
	if len(userJSON) > 0 && userJSON[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(userJSON, &unquoted); err == nil {
			userJSON = []byte(unquoted)
		}
	}

	var user initDataUser
	if err := json.Unmarshal(userJSON, &user); err != nil {
		return nil, fmt.Errorf("malformed user in initData: %w", err)
	}
	if user.platformID() == "" {
		return nil, errors.New("no user id in initData")
	}
	return &user, nil
}

// insertOrFetchUser resolves the race between the webhook and the mini-app
// login both trying to create the same identity: create, and on a uuid
// conflict fetch the row the other writer inserted.
func insertOrFetchUser(db *gorm.DB, uuid, username string) (*models.User, error) {
	var user models.User
	err := db.Where("uuid = ?", uuid).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Keep the username unique without failing the login
	var taken int64
	db.Model(&models.User{}).Where("username = ?", username).Count(&taken)
	if taken > 0 {
		username = fmt.Sprintf("%s_%s", username, uuid)
	}

	user = models.User{Username: username, UUID: uuid}
	if err := db.Create(&user).Error; err != nil {
		if isDuplicateKeyError(err) {
			var existing models.User
			if err2 := db.Where("uuid = ?", uuid).First(&existing).Error; err2 == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &user, nil
}

// WebAppInit authenticates a mini-app session from its initData payload and
// issues a JWT, creating the user on first contact.
func WebAppInit(c *gin.Context) {
	var req models.WebAppInitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	initUser, err := parseInitData(req.InitData)
	if err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return
	}

	uuid := initUser.platformID()
	username := initUser.Username
	if username == "" {
		username = fmt.Sprintf("max_%s_%s", uuid, initUser.displayName())
	}

	db := database.GetDB()
	user, err := insertOrFetchUser(db, uuid, username)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create or find user", err)
		return
	}

	// Pick up a username change on the platform side
	if initUser.Username != "" && user.Username != initUser.Username {
		var taken int64
		db.Model(&models.User{}).Where("username = ? AND id <> ?", initUser.Username, user.ID).Count(&taken)
		if taken == 0 {
			user.Username = initUser.Username
			if err := db.Save(user).Error; err != nil {
				log.Printf("Failed to update username for user %d: %v", user.ID, err)
			}
		}
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

// GetCurrentUser returns the authenticated user
func GetCurrentUser(c *gin.Context) {
	user := auth.CurrentUser(c)
	if user == nil {
		handleError(c, http.StatusUnauthorized, "Not authenticated", errors.New("no user in context"))
		return
	}
	c.JSON(http.StatusOK, user)
}
