package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceconsole/internal/dto"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second), srv
}

func TestLogin_FormEncoded(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostFormValue("username"))
		assert.Equal(t, "secret", r.PostFormValue("password"))

		json.NewEncoder(w).Encode(dto.TokenResponse{AccessToken: "tok-1", TokenType: "bearer"})
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	tok, err := client.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.AccessToken)
}

func TestBearerHeaderAttached(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-xyz", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(dto.User{ID: 1, Username: "alice"})
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	client.SetTokenSource(func() string { return "tok-xyz" })
	user, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

func TestNoBearerHeaderWhenAnonymous(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]dto.User{})
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	client.SetTokenSource(func() string { return "" })
	_, err := client.ListUsers(context.Background())
	require.NoError(t, err)
}

func TestUnauthorizedMapped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	_, err := client.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestErrorIncludesStatusAndBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"settings out of range"}`, http.StatusUnprocessableEntity)
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	_, err := client.GetSettings(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "settings out of range")
}

func TestUpdateUser_PartialBody(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/users/42", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// Only the fields actually set should cross the wire.
		assert.Equal(t, map[string]any{"is_active": false}, body)

		json.NewEncoder(w).Encode(dto.User{ID: 42, IsActive: false})
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	inactive := false
	user, err := client.UpdateUser(context.Background(), 42, dto.UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestUploadVideo_Multipart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake-video-bytes"), 0o644))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "ml", r.FormValue("mode"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.mp4", header.Filename)

		json.NewEncoder(w).Encode(map[string]any{"status": "processing"})
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	ack, err := client.UploadVideo(context.Background(), path, "ml")
	require.NoError(t, err)
	assert.Equal(t, "processing", ack["status"])
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t, "ws://api.local:8000/ws",
		NewClient("http://api.local:8000", time.Second).WebsocketURL("/ws"))
	assert.Equal(t, "wss://api.local/ws/live",
		NewClient("https://api.local", time.Second).WebsocketURL("/ws/live"))
	// Trailing slash on the base URL must not double up.
	assert.Equal(t, "ws://api.local/ws",
		NewClient("http://api.local/", time.Second).WebsocketURL("/ws"))
}

func TestDelete_NoContent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/security-alerts/3", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	client, srv := newTestClient(handler)
	defer srv.Close()

	assert.NoError(t, client.DeleteAlert(context.Background(), 3))
}
