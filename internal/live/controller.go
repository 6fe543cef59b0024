// Package live implements the monitoring stream controller: camera
// selection and capture, the event-notification channel, the live-frame
// channel, and reconciliation of inbound recognition events.
package live

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"faceconsole/internal/api"
	"faceconsole/internal/camera"
	"faceconsole/internal/dto"
	"faceconsole/internal/logger"
)

// Mode selects between the two mutually exclusive input sources.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeUpload Mode = "upload"
)

// Approach selects the backend detection approach.
type Approach string

const (
	ApproachMatching Approach = "matching"
	ApproachML       Approach = "ml"
)

// Config bounds the capture and transmission behavior.
type Config struct {
	FrameInterval  time.Duration
	ReconnectDelay time.Duration
	CaptureWidth   int
	CaptureHeight  int
	JPEGQuality    int
}

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".webm": true,
}

// deviceRescanInterval is the cadence of the sysfs re-scan that picks up
// cameras attached or removed while live mode is active.
const deviceRescanInterval = 3 * time.Second

// frameSource is what the controller needs from an open capture device.
type frameSource interface {
	ReadJPEG(quality int) ([]byte, error)
	Close()
}

// Controller drives the live-monitoring view. The general notification
// channel is always on while Run is active; the live-frame channel exists
// only while live mode and streaming are both true.
type Controller struct {
	api    *api.Client
	log    *logger.Logger
	cfg    Config
	events *EventLog
	stream *EventStream

	// open and rescan default to the camera package; tests substitute them.
	open   func(camera.Device, int, int) (frameSource, error)
	rescan func() []camera.Device

	mu           sync.Mutex
	runCtx       context.Context
	mode         Mode
	approach     Approach
	devices      []camera.Device
	selected     string
	capture      frameSource
	streaming    bool
	uploading    bool
	selectedFile string
	liveCancel   context.CancelFunc
}

// NewController builds a controller. Start (or Run) must be called before
// capture or upload operations.
func NewController(client *api.Client, cfg Config, log *logger.Logger) *Controller {
	return &Controller{
		api:    client,
		log:    log,
		cfg:    cfg,
		events: NewEventLog(),
		stream: NewEventStream(client.WebsocketURL("/ws"), FixedDelay(cfg.ReconnectDelay), log),
		open: func(d camera.Device, w, h int) (frameSource, error) {
			return camera.Open(d, w, h)
		},
		rescan:   camera.Rescan,
		mode:     ModeLive,
		approach: ApproachMatching,
	}
}

// Start binds the controller to ctx and returns the blocking service loop.
// The binding happens on the caller's goroutine, so capture and upload
// operations issued right after Start never observe an unbound controller.
func (c *Controller) Start(ctx context.Context) func() error {
	c.mu.Lock()
	c.runCtx = ctx
	c.mu.Unlock()
	return func() error { return c.serve(ctx) }
}

// Run binds and services in one call.
func (c *Controller) Run(ctx context.Context) error {
	return c.Start(ctx)()
}

// serve pumps the notification channel into the event list and keeps the
// device list current until ctx is cancelled, then releases every held
// resource: open sockets, the frame timer, and any active capture.
func (c *Controller) serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.stream.Run(gctx)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev := <-c.stream.Events():
				c.events.Push(ev)
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(deviceRescanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				c.refreshDevices()
			}
		}
	})

	err := g.Wait()
	c.teardown()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// teardown releases capture and clears per-session state on unmount.
func (c *Controller) teardown() {
	c.StopCapture()
	c.events.Clear()

	c.mu.Lock()
	c.devices = nil
	c.selected = ""
	c.runCtx = nil
	c.mu.Unlock()
}

// EnumerateCameras lists video-input devices, auto-selecting the first one
// when nothing is selected yet. Re-run on device-change while live mode is
// active.
func (c *Controller) EnumerateCameras() []camera.Device {
	devices := camera.Enumerate()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.devices = devices
	if c.selected == "" && len(devices) > 0 {
		c.selected = devices[0].ID
	}
	out := make([]camera.Device, len(devices))
	copy(out, devices)
	return out
}

// refreshDevices re-reads the device list while live mode is active, so
// cameras attached or removed mid-session show up without a restart. Only
// the sysfs scan is used: it never opens devices, so an active capture is
// undisturbed. A nil scan (no sysfs tree) leaves the probed list alone.
func (c *Controller) refreshDevices() {
	devices := c.rescan()
	if devices == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode != ModeLive {
		return
	}
	c.devices = devices
	if c.selected == "" && len(devices) > 0 {
		c.selected = devices[0].ID
	}
}

// SelectCamera picks the capture device by id.
func (c *Controller) SelectCamera(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range c.devices {
		if d.ID == id {
			c.selected = id
			return nil
		}
	}
	return fmt.Errorf("live: unknown camera %q", id)
}

// SelectedCamera returns the current device id, empty when none.
func (c *Controller) SelectedCamera() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// SetMode switches between live and upload input. Leaving live mode clears
// the device list and stops any active capture.
func (c *Controller) SetMode(mode Mode) {
	c.mu.Lock()
	if c.mode == mode {
		c.mu.Unlock()
		return
	}
	c.mode = mode
	c.mu.Unlock()

	if mode != ModeLive {
		c.StopCapture()
		c.mu.Lock()
		c.devices = nil
		c.selected = ""
		c.mu.Unlock()
	}
}

// Mode returns the current input mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetApproach changes the detection approach. An open live channel is
// restarted so the new mode takes effect immediately.
func (c *Controller) SetApproach(a Approach) {
	c.mu.Lock()
	if c.approach == a {
		c.mu.Unlock()
		return
	}
	c.approach = a
	restart := c.streaming && c.mode == ModeLive
	c.mu.Unlock()

	if restart {
		c.restartLiveSession()
	}
}

// Approach returns the current detection approach.
func (c *Controller) Approach() Approach {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.approach
}

// StartCapture acquires the selected camera and opens the live-frame
// session. On failure the error is surfaced and streaming stays false; no
// half-open stream is left behind.
func (c *Controller) StartCapture() error {
	c.mu.Lock()
	if c.runCtx == nil {
		c.mu.Unlock()
		return errors.New("live: controller not running")
	}
	if c.mode != ModeLive {
		c.mu.Unlock()
		return errors.New("live: not in live mode")
	}
	if c.streaming {
		c.mu.Unlock()
		return nil
	}
	if c.selected == "" {
		c.mu.Unlock()
		return errors.New("live: no camera selected")
	}
	device := camera.Device{ID: c.selected}
	for _, d := range c.devices {
		if d.ID == c.selected {
			device = d
		}
	}
	c.mu.Unlock()

	cap, err := c.open(device, c.cfg.CaptureWidth, c.cfg.CaptureHeight)
	if err != nil {
		c.log.Error("camera start failed: %v", err)
		return err
	}

	c.mu.Lock()
	// The device was opened outside the lock; a stop or mode switch may
	// have landed in the gap. Honor it instead of resurrecting the capture.
	if c.runCtx == nil || c.mode != ModeLive {
		c.mu.Unlock()
		cap.Close()
		return errors.New("live: capture aborted: left live mode")
	}
	if c.streaming {
		c.mu.Unlock()
		cap.Close()
		return nil
	}
	liveCtx, cancel := context.WithCancel(c.runCtx)
	c.capture = cap
	c.streaming = true
	c.liveCancel = cancel
	approach := c.approach
	c.mu.Unlock()

	go c.runLiveSession(liveCtx, cap, approach)
	c.log.Info("camera %s started", device.ID)
	return nil
}

// StopCapture closes the live channel and synchronously stops the camera
// before dropping the reference. Idempotent.
func (c *Controller) StopCapture() {
	c.mu.Lock()
	cancel := c.liveCancel
	cap := c.capture
	c.liveCancel = nil
	c.capture = nil
	c.streaming = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if cap != nil {
		cap.Close()
		c.log.Info("camera stopped")
	}
}

// restartLiveSession bounces the frame channel, keeping the capture open.
func (c *Controller) restartLiveSession() {
	c.mu.Lock()
	if !c.streaming || c.capture == nil || c.runCtx == nil {
		c.mu.Unlock()
		return
	}
	if c.liveCancel != nil {
		c.liveCancel()
	}
	liveCtx, cancel := context.WithCancel(c.runCtx)
	c.liveCancel = cancel
	cap := c.capture
	approach := c.approach
	c.mu.Unlock()

	go c.runLiveSession(liveCtx, cap, approach)
}

// runLiveSession owns one live-frame channel lifetime: dial, pump frames on
// the interval, consume results, and redial after the policy delay while
// the session context lives.
func (c *Controller) runLiveSession(ctx context.Context, cap frameSource, approach Approach) {
	url := c.api.WebsocketURL("/ws/live?mode=" + string(approach))
	policy := FixedDelay(c.cfg.ReconnectDelay)
	attempt := 0

	for ctx.Err() == nil {
		fc, err := dialFrameChannel(ctx, url)
		if err != nil {
			attempt++
			c.log.Warning("live channel dial failed (attempt %d): %v", attempt, err)
			if sleep(ctx, policy.NextDelay(attempt)) != nil {
				return
			}
			continue
		}
		attempt = 0
		c.log.Info("live channel connected (mode %s)", approach)

		sessionDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				fc.Close()
			case <-sessionDone:
			}
		}()
		go c.frameLoop(ctx, fc, cap, sessionDone)

		err = fc.readResults(ctx, c.events)
		close(sessionDone)
		fc.Close()

		if ctx.Err() != nil {
			return
		}
		c.log.Warning("live channel closed, retrying: %v", err)
		attempt++
		if sleep(ctx, policy.NextDelay(attempt)) != nil {
			return
		}
	}
}

// frameLoop transmits one JPEG frame per tick while the channel is open.
// Readiness is checked before every send so frames are never enqueued
// faster than the connection accepts.
func (c *Controller) frameLoop(ctx context.Context, fc *frameChannel, cap frameSource, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if !fc.Open() {
				continue
			}
			frame, err := cap.ReadJPEG(c.cfg.JPEGQuality)
			if err != nil {
				if errors.Is(err, camera.ErrNotStreaming) {
					return
				}
				c.log.Warning("frame capture failed: %v", err)
				continue
			}
			if err := fc.SendFrame(frame); err != nil && !errors.Is(err, ErrChannelClosed) {
				c.log.Warning("frame send failed: %v", err)
			}
		}
	}
}

// SelectFile stages a pre-recorded video for upload.
func (c *Controller) SelectFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !videoExtensions[ext] {
		return fmt.Errorf("live: %q is not a supported video file", path)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("live: %w", err)
	}

	c.mu.Lock()
	c.selectedFile = path
	c.mu.Unlock()
	return nil
}

// SelectedFile returns the staged upload path, empty when none.
func (c *Controller) SelectedFile() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedFile
}

// UploadVideo posts the staged file with the current detection approach.
// Requires the notification channel to be connected, since results arrive
// there. The staged file is cleared when the attempt finishes, whether or
// not it succeeded.
func (c *Controller) UploadVideo(ctx context.Context) error {
	c.mu.Lock()
	path := c.selectedFile
	approach := c.approach
	busy := c.uploading
	c.mu.Unlock()

	if path == "" {
		return errors.New("live: no video selected")
	}
	if busy {
		return errors.New("live: upload already in progress")
	}
	if !c.stream.Connected() {
		return errors.New("live: notification channel not connected")
	}

	c.mu.Lock()
	c.uploading = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.uploading = false
		c.selectedFile = ""
		c.mu.Unlock()
	}()

	ack, err := c.api.UploadVideo(ctx, path, string(approach))
	if err != nil {
		c.log.Error("upload failed: %v", err)
		return err
	}
	c.log.Info("upload accepted: %v", ack)
	return nil
}

// Streaming reports whether a capture is active.
func (c *Controller) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Uploading reports whether an upload is in flight.
func (c *Controller) Uploading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uploading
}

// Connected reports whether the notification channel is open.
func (c *Controller) Connected() bool {
	return c.stream.Connected()
}

// Events returns the reconciled event list, newest first.
func (c *Controller) Events() []dto.Event {
	return c.events.Snapshot()
}
