package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"grapevine/internal/config"
	"grapevine/internal/database"
	"grapevine/internal/mail"
	"grapevine/internal/models"
	"grapevine/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestServer builds a full server on an in-memory database, a miniredis
// instance and a temp-dir object store, and returns it with a routed app.
func newTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dir := t.TempDir()
	store, err := storage.NewDiskStore(dir, "http://localhost:8480")
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:     "test-secret-0123456789-0123456789",
		Env:           "test",
		UploadDir:     dir,
		PublicBaseURL: "http://localhost:8480",
	}
	mailer := &mail.LogSender{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	srv, err := NewServerWithDeps(cfg, db, rdb, store, mailer)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	srv.SetupRoutes(app)
	return srv, app
}

// signupUser creates an account directly and returns it with a valid access token.
func signupUser(t *testing.T, srv *Server, email, role string) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("Str0ngPass12!"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  string(hash),
		Role:      role,
	}
	require.NoError(t, srv.db.Create(u).Error)

	tok, err := srv.tokens.IssueAccess(u.ID, u.Role)
	require.NoError(t, err)
	return u, tok
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// multipartRequest builds a multipart form request from string fields.
func multipartRequest(t *testing.T, method, target string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

// multipartFileRequest builds a multipart form request with string fields and
// one attached file.
func multipartFileRequest(t *testing.T, method, target string, fields map[string]string, fileField, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile(fileField, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// createGossipViaAPI posts a gossip through the HTTP surface and returns its ID.
func createGossipViaAPI(t *testing.T, app *fiber.App, token, title string) uint {
	t.Helper()
	req := authed(multipartRequest(t, http.MethodPost, "/gossips/create", map[string]string{
		"title":   title,
		"content": "content of " + title,
	}), token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var gossip models.Gossip
	decodeBody(t, resp, &gossip)
	return gossip.ID
}

// createCommentViaAPI posts a comment under a gossip and returns its ID.
func createCommentViaAPI(t *testing.T, app *fiber.App, token string, gossipID uint, content string) uint {
	t.Helper()
	req := authed(jsonRequest(http.MethodPost,
		"/gossips/create/"+itoa(gossipID)+"/comment",
		map[string]string{"content": content}), token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var comment models.Comment
	decodeBody(t, resp, &comment)
	return comment.ID
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
