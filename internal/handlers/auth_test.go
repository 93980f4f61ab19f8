package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInitDataJSON(t *testing.T) {
	user, err := parseInitData(`{"user":{"user_id":12345,"first_name":"Иван","last_name":"Петров","username":"ivan"}}`)
	require.NoError(t, err)
	assert.Equal(t, "12345", user.platformID())
	assert.Equal(t, "ivan", user.Username)
	assert.Equal(t, "Иван Петров", user.displayName())
}

func TestParseInitDataQueryString(t *testing.T) {
	user, err := parseInitData(`user=%7B%22id%22%3A42%2C%22name%22%3A%22Anna%22%7D&auth_date=1700000000`)
	require.NoError(t, err)
	assert.Equal(t, "42", user.platformID())
	assert.Equal(t, "Anna", user.displayName())
}

func TestParseInitDataTopLevelUser(t *testing.T) {
	user, err := parseInitData(`{"user_id":7,"username":"bob"}`)
	require.NoError(t, err)
	assert.Equal(t, "7", user.platformID())
	assert.Equal(t, "bob", user.displayName())
}

func TestParseInitDataUserAsEncodedString(t *testing.T) {
	user, err := parseInitData(`{"user":"{\"user_id\":99,\"first_name\":\"Lena\"}"}`)
	require.NoError(t, err)
	assert.Equal(t, "99", user.platformID())
	assert.Equal(t, "Lena", user.displayName())
}

func TestParseInitDataRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "%%%not-a-query", `{"user":{}}`, "auth_date=123"} {
		_, err := parseInitData(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestInitDataUserFallbackName(t *testing.T) {
	user := initDataUser{UserID: "555"}
	assert.Equal(t, "user_555", user.displayName())
}
