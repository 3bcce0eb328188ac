package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"femcircle/internal/config"
	"femcircle/internal/middleware"
	"femcircle/internal/models"
	"femcircle/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

// testEnv is a full API over the in-memory store.
type testEnv struct {
	srv   *Server
	app   *fiber.App
	store *repository.MemoryStore
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:         testSecret,
		Port:              "0",
		Env:               "test",
		SessionCookieName: "femcircle_session",
		SessionTTLHours:   1,
		AllowedOrigins:    "http://localhost:5173",
	}
	for _, m := range mutate {
		m(cfg)
	}
	store := repository.NewMemoryStore()
	srv := newServer(cfg, store.Users(), store.Products())
	return &testEnv{srv: srv, app: srv.App(), store: store}
}

// addUser stores a member whose password is "Member@123".
func (e *testEnv) addUser(t *testing.T, username string, admin bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Member@123"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		FullName:     username + " Test",
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		IsVerified:   true,
		IsAdmin:      admin,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u
}

// session returns a signed session token for u.
func (e *testEnv) session(t *testing.T, u *models.User) string {
	t.Helper()
	token, _, err := middleware.IssueSessionToken(testSecret, middleware.SessionClaims{
		UserID:   u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) addListing(t *testing.T, seller *models.User, approved bool) *models.Product {
	t.Helper()
	price := 300.0
	p := &models.Product{
		Title:         "Brass diya set",
		Description:   "Set of six, polished",
		Category:      "Home",
		ListingType:   models.ListingTypeSell,
		Price:         &price,
		ItemCondition: "Good",
		Quantity:      1,
		City:          "Jaipur",
		IsApproved:    approved,
		SellerID:      seller.ID,
	}
	require.NoError(t, e.store.Products().Create(context.Background(), p))
	return p
}

// do sends a request with an optional JSON body and bearer token and decodes
// the JSON response into out when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func sessionCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func listingBody() map[string]any {
	return map[string]any{
		"title":          "Handloom dupatta",
		"description":    "Cotton, indigo block print",
		"category":       "Clothing",
		"listing_type":   "Sell",
		"price":          450,
		"item_condition": "New",
		"quantity":       1,
		"city":           "Bengaluru",
	}
}
