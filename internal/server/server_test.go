package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"localmade/internal/cache"
	"localmade/internal/config"
	"localmade/internal/database"
	"localmade/internal/models"
	"localmade/internal/service"
	"localmade/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The prometheus middleware registers collectors globally, so the whole API
// suite shares one server instance and exercises it through subtests.
func TestAPI(t *testing.T) {
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Port:      "0",
		JWTSecret: "test-secret-used-only-in-tests-0123456789",
		Env:       "test",
	}
	srv := NewServerWithDeps(cfg, db, store)
	t.Cleanup(srv.Shutdown)

	app := fiber.New(fiber.Config{BodyLimit: 12 * 1024 * 1024})
	srv.SetupRoutes(app)

	t.Run("Signup Rejects Invalid Email", func(t *testing.T) {
		resp := postJSON(t, app, "/api/auth/signup", fiber.Map{
			"email": "not-an-email", "password": "long-enough",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeError(t, resp)
		assert.Equal(t, "Invalid email format. Please enter a valid email address.", body.Error)
		assert.Equal(t, int64(0), countAccounts(t, db))
	})

	t.Run("Signup Rejects Six Char Password", func(t *testing.T) {
		resp := postJSON(t, app, "/api/auth/signup", fiber.Map{
			"email": "short@pass.io", "password": "abcdef",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeError(t, resp)
		assert.Equal(t, "Password must be at least 6 characters long.", body.Error)
		assert.Equal(t, int64(0), countAccounts(t, db))
	})

	t.Run("Signup Then Session", func(t *testing.T) {
		resp := postJSON(t, app, "/api/auth/signup", fiber.Map{
			"email": "jamie@artist.io", "password": "abcdefg",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		session := decodeSession(t, resp)
		require.NotEmpty(t, session.Token)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.Header.Set("Authorization", "Bearer "+session.Token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Login Failure Is Generic", func(t *testing.T) {
		resp := postJSON(t, app, "/api/auth/login", fiber.Map{
			"email": "jamie@artist.io", "password": "wrong-pass",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeError(t, resp)
		assert.Equal(t, "The login information is incorrect", body.Error)

		// An unknown email reads exactly the same.
		resp = postJSON(t, app, "/api/auth/login", fiber.Map{
			"email": "ghost@artist.io", "password": "abcdefg",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "The login information is incorrect", decodeError(t, resp).Error)
	})

	t.Run("Account Requires Auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/account/", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Account Flow", func(t *testing.T) {
		token := signUp(t, app, "flow@artist.io")

		// A brand-new account hydrates blank fields, not an error.
		var state service.AccountState
		getJSON(t, app, "/api/account/", token, &state)
		assert.Nil(t, state.Profile.FullName)
		assert.Empty(t, state.Posts)

		resp := putJSON(t, app, "/api/account/profile", token, fiber.Map{
			"full_name": "Flow Artist", "public_profile": true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status service.ActionStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, service.OutcomeOK, status.Outcome)
		assert.Equal(t, "Profile updated!", status.Message)

		// Upload a post.
		resp = postImage(t, app, "/api/account/posts", token, map[string]string{"caption": "sunset"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Equal(t, service.OutcomeOK, status.Outcome)
		require.Len(t, status.Posts, 1)
		assert.Equal(t, "sunset", status.Posts[0].Caption)
		postID := status.Posts[0].ID
		blobKey := status.Posts[0].ImageURL

		// The stored image is served back, as is its WebP rendition.
		req := httptest.NewRequest(http.MethodGet, "/media/posts/"+blobKey, nil)
		mediaResp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, mediaResp.StatusCode)
		assert.Equal(t, "image/jpeg", mediaResp.Header.Get("Content-Type"))

		webpKey := strings.TrimSuffix(blobKey, ".jpg") + ".webp"
		req = httptest.NewRequest(http.MethodGet, "/media/posts/"+webpKey, nil)
		mediaResp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, mediaResp.StatusCode)
		assert.Equal(t, "image/webp", mediaResp.Header.Get("Content-Type"))

		// Delete it and verify the account is empty again.
		req = httptest.NewRequest(http.MethodDelete, "/api/account/posts/"+postID, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err = app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		status = service.ActionStatus{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		assert.Empty(t, status.Posts)

		req = httptest.NewRequest(http.MethodGet, "/media/posts/"+blobKey, nil)
		mediaResp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, mediaResp.StatusCode)
	})

	t.Run("Delete Foreign Post Is NotFound", func(t *testing.T) {
		owner := signUp(t, app, "owner@artist.io")
		intruder := signUp(t, app, "intruder@artist.io")

		resp := postImage(t, app, "/api/account/posts", owner, map[string]string{"caption": "mine"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var status service.ActionStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
		require.Len(t, status.Posts, 1)

		req := httptest.NewRequest(http.MethodDelete, "/api/account/posts/"+status.Posts[0].ID, nil)
		req.Header.Set("Authorization", "Bearer "+intruder)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Directory Excludes Private Profiles", func(t *testing.T) {
		public := signUp(t, app, "public@artist.io")
		private := signUp(t, app, "private@artist.io")

		resp := putJSON(t, app, "/api/account/profile", public, fiber.Map{
			"full_name": "Public Artist", "public_profile": true,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = putJSON(t, app, "/api/account/profile", private, fiber.Map{
			"full_name": "Private Artist", "public_profile": false,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		req := httptest.NewRequest(http.MethodGet, "/api/directory", nil)
		dirResp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, dirResp.StatusCode)

		var payload struct {
			Artists []service.DirectoryEntry `json:"artists"`
		}
		require.NoError(t, json.NewDecoder(dirResp.Body).Decode(&payload))

		var names []string
		for _, entry := range payload.Artists {
			if entry.Profile.FullName != nil {
				names = append(names, *entry.Profile.FullName)
			}
		}
		assert.Contains(t, names, "Public Artist")
		assert.NotContains(t, names, "Private Artist")
	})
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func putJSON(t *testing.T, app *fiber.App, path, token string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, app *fiber.App, path, token string, dest any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// postImage posts a multipart form with a small generated PNG plus fields.
func postImage(t *testing.T, app *fiber.App, path, token string, fields map[string]string) *http.Response {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "upload.png")
	require.NoError(t, err)
	_, err = io.Copy(part, &img)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

func signUp(t *testing.T, app *fiber.App, email string) string {
	t.Helper()
	resp := postJSON(t, app, "/api/auth/signup", fiber.Map{
		"email": email, "password": "abcdefg",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeSession(t, resp).Token
}

func decodeSession(t *testing.T, resp *http.Response) struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
} {
	t.Helper()
	var session struct {
		UserID string `json:"user_id"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	return session
}

func decodeError(t *testing.T, resp *http.Response) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func countAccounts(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Account{}).Count(&count).Error)
	return count
}
