package server

import (
	"context"
	"net/http"
	"testing"

	"femcircle/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registrationBody() map[string]any {
	return map[string]any{
		"full_name":        "Kavya Nair",
		"username":         "kavya",
		"email":            "kavya@example.com",
		"password":         "Member@123",
		"confirm_password": "Member@123",
		"accept_terms":     true,
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates member and starts a session", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)

		var body struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		}
		resp := env.do(t, http.MethodPost, "/api/auth/register", registrationBody(), "", &body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, body.Token)
		assert.Equal(t, "kavya", body.User.Username)
		assert.True(t, body.User.IsVerified)
		assert.False(t, body.User.IsAdmin)
		assert.Empty(t, body.User.PasswordHash)

		cookie := sessionCookie(resp, "femcircle_session")
		require.NotNil(t, cookie)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, body.Token, cookie.Value)
	})

	t.Run("duplicates answer 409 with distinct codes", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		env.addUser(t, "kavya", false)

		var errBody models.ErrorResponse
		resp := env.do(t, http.MethodPost, "/api/auth/register", registrationBody(), "", &errBody)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.CodeDuplicateUsername, errBody.Code)

		other := registrationBody()
		other["username"] = "kavya2"
		other["email"] = "KAVYA@example.com"
		resp = env.do(t, http.MethodPost, "/api/auth/register", other, "", &errBody)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.CodeDuplicateEmail, errBody.Code)
	})

	t.Run("validation failure", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		body := registrationBody()
		body["confirm_password"] = "Different@123"
		resp := env.do(t, http.MethodPost, "/api/auth/register", body, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		login  string
		pass   string
		status int
	}{
		{"username", "priya", "Member@123", http.StatusOK},
		{"email any case", "PRIYA@example.com", "Member@123", http.StatusOK},
		{"wrong password", "priya", "nope-nope", http.StatusUnauthorized},
		{"unknown", "ghost", "Member@123", http.StatusUnauthorized},
		{"missing fields", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			env.addUser(t, "priya", false)

			resp := env.do(t, http.MethodPost, "/api/auth/login",
				map[string]string{"login": tt.login, "password": tt.pass}, "", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				assert.NotNil(t, sessionCookie(resp, "femcircle_session"))
			}
		})
	}

	t.Run("blocked member", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		u := env.addUser(t, "priya", false)
		_, err := env.store.Users().ToggleBlocked(context.Background(), u.ID)
		require.NoError(t, err)

		resp := env.do(t, http.MethodPost, "/api/auth/login",
			map[string]string{"login": "priya", "password": "Member@123"}, "", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestMeAndLogout(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	u := env.addUser(t, "priya", false)
	token := env.session(t, u)

	var me models.User
	resp := env.do(t, http.MethodGet, "/api/auth/me", nil, token, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, u.ID, me.ID)

	resp = env.do(t, http.MethodPost, "/api/auth/logout", nil, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := sessionCookie(resp, "femcircle_session")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)

	resp = env.do(t, http.MethodGet, "/api/auth/me", nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
