// Package api implements the REST client for the face-recognition backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"faceconsole/internal/dto"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
var ErrUnauthorized = errors.New("api: unauthorized")

// TokenSource supplies the current bearer token; empty means unauthenticated.
type TokenSource func() string

// Client communicates with the backend REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokenFunc  TokenSource
}

// NewClient creates a new API client with connection pooling.
func NewClient(baseURL string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// SetTokenSource sets the bearer-token supplier used on authenticated calls.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokenFunc = ts
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// WebsocketURL derives the ws:// (or wss://) URL for the given path.
func (c *Client) WebsocketURL(path string) string {
	u := c.baseURL
	if strings.HasPrefix(u, "https") {
		u = "wss" + strings.TrimPrefix(u, "https")
	} else {
		u = "ws" + strings.TrimPrefix(u, "http")
	}
	return u + path
}

// Login exchanges credentials for a token. The endpoint takes a
// form-encoded body, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "login"); err != nil {
		return nil, err
	}

	var tok dto.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, fmt.Errorf("login: decode response: %w", err)
	}
	return &tok, nil
}

// Me fetches the enriched profile for the current token.
func (c *Client) Me(ctx context.Context) (*dto.User, error) {
	var user dto.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout notifies the backend that the session is ending. Best effort; the
// caller ignores failures.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// ListUsers returns all accounts.
func (c *Client) ListUsers(ctx context.Context) ([]dto.User, error) {
	var users []dto.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates an admin account.
func (c *Client) CreateUser(ctx context.Context, req dto.CreateUserRequest) (*dto.User, error) {
	var user dto.User
	if err := c.doJSON(ctx, http.MethodPost, "/users/", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser applies a partial update to an account.
func (c *Client) UpdateUser(ctx context.Context, id int, req dto.UpdateUserRequest) (*dto.User, error) {
	var user dto.User
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/users/%d", id), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/users/%d", id), nil, nil)
}

// RegisterSuperAdmin creates the initial superuser account. Unauthenticated
// by design: it is how the very first login becomes possible.
func (c *Client) RegisterSuperAdmin(ctx context.Context, req dto.CreateUserRequest) (*dto.User, error) {
	var user dto.User
	if err := c.doJSON(ctx, http.MethodPost, "/users/register-superadmin", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListStudents returns all enrolled face records.
func (c *Client) ListStudents(ctx context.Context) ([]dto.FaceRecord, error) {
	var records []dto.FaceRecord
	if err := c.doJSON(ctx, http.MethodGet, "/api/students/", nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteFaceData removes one face-data record.
func (c *Client) DeleteFaceData(ctx context.Context, faceID string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/student-face-data/"+url.PathEscape(faceID), nil, nil)
}

// DashboardStats fetches the aggregate counters.
func (c *Client) DashboardStats(ctx context.Context) (*dto.DashboardStats, error) {
	var stats dto.DashboardStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DashboardTrends fetches the recognition trend series.
func (c *Client) DashboardTrends(ctx context.Context) ([]dto.TrendPoint, error) {
	var trends []dto.TrendPoint
	if err := c.doJSON(ctx, http.MethodGet, "/api/dashboard/trends", nil, &trends); err != nil {
		return nil, err
	}
	return trends, nil
}

// ListAlerts returns stored security alerts.
func (c *Client) ListAlerts(ctx context.Context) ([]dto.SecurityAlert, error) {
	var alerts []dto.SecurityAlert
	if err := c.doJSON(ctx, http.MethodGet, "/security-alerts", nil, &alerts); err != nil {
		return nil, err
	}
	return alerts, nil
}

// DeleteAlert dismisses one alert.
func (c *Client) DeleteAlert(ctx context.Context, id int) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/security-alerts/%d", id), nil, nil)
}

// GetSettings fetches the system settings.
func (c *Client) GetSettings(ctx context.Context) (*dto.Settings, error) {
	var settings dto.Settings
	if err := c.doJSON(ctx, http.MethodGet, "/api/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings applies a partial settings change and returns the result.
func (c *Client) UpdateSettings(ctx context.Context, update dto.SettingsUpdate) (*dto.Settings, error) {
	var settings dto.Settings
	if err := c.doJSON(ctx, http.MethodPut, "/api/settings", update, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ClearCache asks the backend to drop its recognition cache.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/maintenance/clear-cache", nil, nil)
}

// RefreshSystem asks the backend to reload its recognition data.
func (c *Client) RefreshSystem(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/maintenance/refresh", nil, nil)
}

// CacheStats fetches recognition-cache statistics.
func (c *Client) CacheStats(ctx context.Context) (*dto.CacheStats, error) {
	var stats dto.CacheStats
	if err := c.doJSON(ctx, http.MethodGet, "/api/maintenance/cache-stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// UploadVideo posts a pre-recorded video plus the detection mode as a
// multipart request. Returns the backend's acknowledgement body.
func (c *Client) UploadVideo(ctx context.Context, path, mode string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if err := writer.WriteField("mode", mode); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "upload"); err != nil {
		return nil, err
	}

	var ack map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("upload: decode response: %w", err)
	}
	return ack, nil
}

// doJSON performs an authenticated JSON request. A nil out discards the body.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, op); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// authorize attaches the bearer token when one is available.
func (c *Client) authorize(req *http.Request) {
	if c.tokenFunc == nil {
		return
	}
	if token := c.tokenFunc(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// checkStatus maps non-2xx responses to errors, reading the body for detail.
func checkStatus(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("%s: HTTP %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
}
