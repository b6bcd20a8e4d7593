// Package screen provides platform-agnostic capture of a rectangular screen region.
// Frames are returned PNG-encoded.
package screen

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"sync"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
)

// Region is a capture rectangle in screen coordinates. The zero Region means the full screen.
type Region = image.Rectangle

// Failure codes attached to CaptureFailed errors.
const (
	CodeGrabFailed   = 1
	CodeEncodeFailed = 2
	CodeNoRegion     = 3
	CodeClosed       = 4
	CodeEmptyFrame   = 5
)

var (
	errClosed   = errors.New("capturer closed")
	errNoRegion = errors.New("manual capturer has no region")
	errEmpty    = errors.New("empty frame")
)

// Capturer grabs frames of its current region.
type Capturer interface {
	Capture() ([]byte, error)
	SetRegion(r Region)
	Close()
}

// Factory creates capturers. A manual capturer starts without a region and
// refuses to capture until SetRegion is called.
type Factory func(manual bool) (Capturer, error)

// backend implements platform-specific raw capture.
type backend interface {
	grab(r Region) ([]byte, error)
	cleanup()
}

type baseCapturer struct {
	backend
	mu      sync.Mutex
	region  Region
	manual  bool
	closed  bool
	tempDir string
}

// NewFactory returns a Factory whose automatic capturers watch region.
func NewFactory(region Region) Factory {
	return func(manual bool) (Capturer, error) {
		b, tempDir, err := newBackend()
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CapturerInit, "init screen capture backend")
		}
		c := &baseCapturer{backend: b, manual: manual, tempDir: tempDir}
		if !manual {
			c.region = region
		}
		return c, nil
	}
}

func (c *baseCapturer) SetRegion(r Region) {
	c.mu.Lock()
	c.region = r.Canon()
	c.mu.Unlock()
}

func (c *baseCapturer) Capture() ([]byte, error) {
	c.mu.Lock()
	region, manual, closed := c.region, c.manual, c.closed
	c.mu.Unlock()

	if closed {
		return nil, apperrors.Capture(CodeClosed, errClosed)
	}
	if manual && region.Empty() {
		return nil, apperrors.Capture(CodeNoRegion, errNoRegion)
	}

	data, err := c.grab(region)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CaptureFailed) {
			return nil, err
		}
		return nil, apperrors.Capture(CodeGrabFailed, err)
	}
	if len(data) == 0 {
		return nil, apperrors.Capture(CodeEmptyFrame, errEmpty)
	}
	return data, nil
}

func (c *baseCapturer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.Capture(CodeEncodeFailed, err)
	}
	return buf.Bytes(), nil
}
