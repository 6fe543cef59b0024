package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceconsole/internal/api"
	"faceconsole/internal/camera"
	"faceconsole/internal/logger"
)

func testControllerConfig() Config {
	return Config{
		FrameInterval:  100 * time.Millisecond,
		ReconnectDelay: 10 * time.Millisecond,
		CaptureWidth:   640,
		CaptureHeight:  480,
		JPEGQuality:    70,
	}
}

func newIdleController(baseURL string) *Controller {
	return NewController(api.NewClient(baseURL, 5*time.Second), testControllerConfig(), logger.Discard())
}

// fakeCapture stands in for an open camera device.
type fakeCapture struct {
	mu     sync.Mutex
	closed bool
	frames int
}

func (f *fakeCapture) ReadJPEG(int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, camera.ErrNotStreaming
	}
	f.frames++
	return []byte{0xff, 0xd8}, nil
}

func (f *fakeCapture) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeCapture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestController_Defaults(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	assert.Equal(t, ModeLive, c.Mode())
	assert.Equal(t, ApproachMatching, c.Approach())
	assert.False(t, c.Streaming())
	assert.False(t, c.Uploading())
	assert.Empty(t, c.SelectedCamera())
	assert.Empty(t, c.SelectedFile())
}

func TestStartCapture_Preconditions(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")

	// Not bound to a context yet.
	err := c.StartCapture()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")

	c.Start(context.Background())

	// Bound but no camera selected.
	err = c.StartCapture()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no camera selected")

	// Wrong mode.
	c.SetMode(ModeUpload)
	err = c.StartCapture()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in live mode")

	assert.False(t, c.Streaming())
}

func TestStart_BindsBeforeServiceLoop(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")

	// Start records the context synchronously; the returned loop has not
	// been run, yet capture requests already see a bound controller.
	c.Start(context.Background())

	err := c.StartCapture()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no camera selected")
	assert.NotContains(t, err.Error(), "not running")
}

func TestStopCapture_ReleasesDevice(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	c.Start(context.Background())
	c.devices = []camera.Device{{ID: "/dev/video0", Label: "Integrated Camera"}}
	c.selected = "/dev/video0"

	fake := &fakeCapture{}
	c.open = func(camera.Device, int, int) (frameSource, error) { return fake, nil }

	require.NoError(t, c.StartCapture())
	assert.True(t, c.Streaming())

	c.StopCapture()
	assert.True(t, fake.Closed())
	assert.False(t, c.Streaming())
	c.mu.Lock()
	assert.Nil(t, c.capture)
	c.mu.Unlock()

	// Stopping again is a no-op.
	c.StopCapture()
}

func TestStartCapture_AbortsWhenModeSwitchesMidOpen(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	c.Start(context.Background())
	c.devices = []camera.Device{{ID: "/dev/video0"}}
	c.selected = "/dev/video0"

	fake := &fakeCapture{}
	c.open = func(camera.Device, int, int) (frameSource, error) {
		// A mode switch lands while the device is being acquired.
		c.SetMode(ModeUpload)
		return fake, nil
	}

	err := c.StartCapture()
	require.Error(t, err)
	assert.True(t, fake.Closed(), "an aborted start must release the device")
	assert.False(t, c.Streaming())
}

func TestRefreshDevices(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	c.rescan = func() []camera.Device {
		return []camera.Device{{ID: "/dev/video1", Label: "USB Camera"}}
	}

	c.refreshDevices()
	assert.Equal(t, "/dev/video1", c.SelectedCamera())

	// Upload mode keeps no device list, so a rescan must not repopulate it.
	c.SetMode(ModeUpload)
	c.refreshDevices()
	assert.Empty(t, c.SelectedCamera())
	c.mu.Lock()
	assert.Empty(t, c.devices)
	c.mu.Unlock()
}

func TestRefreshDevices_NoSysfsKeepsProbedList(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	c.devices = []camera.Device{{ID: "0"}}
	c.selected = "0"
	c.rescan = func() []camera.Device { return nil }

	c.refreshDevices()
	assert.Equal(t, "0", c.SelectedCamera())
	c.mu.Lock()
	assert.Len(t, c.devices, 1)
	c.mu.Unlock()
}

func TestSetMode_LeavingLiveClearsDevices(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	c.devices = []camera.Device{{ID: "/dev/video0", Label: "Integrated Camera"}}
	c.selected = "/dev/video0"

	c.SetMode(ModeUpload)
	assert.Equal(t, ModeUpload, c.Mode())
	assert.Empty(t, c.devices)
	assert.Empty(t, c.SelectedCamera())

	// Returning to live mode starts with a fresh device list.
	c.SetMode(ModeLive)
	assert.Empty(t, c.SelectedCamera())
}

func TestSelectCamera(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")
	c.devices = []camera.Device{
		{ID: "/dev/video0", Label: "Integrated Camera"},
		{ID: "/dev/video2", Label: "USB Camera"},
	}

	require.NoError(t, c.SelectCamera("/dev/video2"))
	assert.Equal(t, "/dev/video2", c.SelectedCamera())

	err := c.SelectCamera("/dev/video9")
	require.Error(t, err)
	assert.Equal(t, "/dev/video2", c.SelectedCamera())
}

func TestSelectFile_Validation(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")

	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))
	document := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(document, []byte("x"), 0o644))

	assert.Error(t, c.SelectFile(document), "non-video extension rejected")
	assert.Error(t, c.SelectFile(filepath.Join(dir, "missing.mp4")), "missing file rejected")
	assert.Empty(t, c.SelectedFile())

	require.NoError(t, c.SelectFile(video))
	assert.Equal(t, video, c.SelectedFile())
}

func TestUploadVideo_Preconditions(t *testing.T) {
	c := newIdleController("http://127.0.0.1:0")

	err := c.UploadVideo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no video selected")

	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))
	require.NoError(t, c.SelectFile(video))

	// Notification channel never connected: the upload must refuse.
	err = c.UploadVideo(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
	// A refused precondition never starts the attempt, so the staged file
	// is kept for a retry.
	assert.Equal(t, video, c.SelectedFile())
}

func TestUploadVideo_ClearsSelectionOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "processing backlog full", http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newIdleController(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))
	require.NoError(t, c.SelectFile(video))

	err := c.UploadVideo(ctx)
	require.Error(t, err)
	// A finished attempt clears the selection even when it failed.
	assert.Empty(t, c.SelectedFile())
	assert.False(t, c.Uploading())
}

func TestUploadVideo_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "matching", r.FormValue("mode"))
		json.NewEncoder(w).Encode(map[string]any{"status": "queued"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newIdleController(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, c.Connected, 2*time.Second, 10*time.Millisecond)

	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))
	require.NoError(t, c.SelectFile(video))

	require.NoError(t, c.UploadVideo(ctx))
	assert.Empty(t, c.SelectedFile())
}

func TestRun_DeliversEventsIntoLog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var hello readyHandshake
		require.NoError(t, conn.ReadJSON(&hello))
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "success", "student": "S1"}))
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "success", "student": "S1"}))
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "success", "student": "S2"}))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newIdleController(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	require.Eventually(t, func() bool {
		return len(c.Events()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	events := c.Events()
	assert.Equal(t, "S2", events[0].Student)
	assert.Equal(t, "S1", events[1].Student)
}
