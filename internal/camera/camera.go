// Package camera wraps local video-input devices: enumeration, capture at a
// bounded resolution, and JPEG encoding of individual frames.
package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNotStreaming is returned when a frame is requested from a closed capture.
var ErrNotStreaming = errors.New("camera: capture not open")

// Capture is an open video stream from one device.
type Capture struct {
	device Device

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	frame  gocv.Mat
	closed bool
}

// Open acquires a video stream from the device at the requested target
// resolution. On any failure the device is released before returning, so a
// failed Open never leaves a half-open stream.
func Open(device Device, width, height int) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(device.ID)
	if err != nil {
		return nil, fmt.Errorf("open camera %s: %w", device.ID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("open camera %s: device unavailable", device.ID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &Capture{
		device: device,
		vc:     vc,
		frame:  gocv.NewMat(),
	}, nil
}

// Device returns the device this capture was opened on.
func (c *Capture) Device() Device {
	return c.device
}

// ReadJPEG grabs the current frame and encodes it as JPEG at the given
// quality. The returned slice is owned by the caller.
func (c *Capture) ReadJPEG(quality int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrNotStreaming
	}
	if ok := c.vc.Read(&c.frame); !ok || c.frame.Empty() {
		return nil, fmt.Errorf("camera %s: failed to grab frame", c.device.ID)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.frame,
		[]int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("camera %s: encode frame: %w", c.device.ID, err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Close releases the device and frame buffer. Idempotent: tracks must be
// stopped synchronously before the reference is dropped.
func (c *Capture) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.vc.Close()
	c.frame.Close()
}
