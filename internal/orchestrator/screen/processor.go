// Package screen prepares captured frames for detection: it spots frames that
// repeat the previous capture exactly and builds the unioned frame used by the
// secondary self-check.
package screen

import (
	"bytes"
	"crypto/sha256"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	apperrors "github.com/GriffinCanCode/screenlate/internal/errors"
)

// Processor holds the per-session frame history.
type Processor struct {
	mu            sync.Mutex
	skipUnchanged bool
	lastSum       [sha256.Size]byte
	hasSum        bool
	prevGray      gocv.Mat
	hasPrev       bool
}

// NewProcessor creates a processor. With skipUnchanged false, Unchanged always reports false.
func NewProcessor(skipUnchanged bool) *Processor {
	return &Processor{skipUnchanged: skipUnchanged}
}

// SetSkipUnchanged toggles unchanged-frame detection.
func (p *Processor) SetSkipUnchanged(skip bool) {
	p.mu.Lock()
	p.skipUnchanged = skip
	p.hasSum = false
	p.mu.Unlock()
}

// Unchanged reports whether frame is byte-for-byte the previous frame. Every
// call replaces the remembered frame, so a skip never outlives one repeat of
// the same capture.
func (p *Processor) Unchanged(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.skipUnchanged {
		return false
	}

	sum := sha256.Sum256(frame)
	same := p.hasSum && sum == p.lastSum
	p.lastSum, p.hasSum = sum, true
	if same {
		slog.Debug("frame unchanged", "bytes", len(frame))
	}
	return same
}

// Union blends the grayscale form of frame with the previous grayscale frame
// and returns the result as PNG. The current frame becomes the previous one.
// ok is false when there was no previous frame of the same size to blend with.
func (p *Processor) Union(frame []byte) (union []byte, ok bool, err error) {
	gray, err := gocv.IMDecode(frame, gocv.IMReadGrayScale)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.InvalidImage, "decode frame")
	}
	if gray.Empty() {
		gray.Close()
		return nil, false, apperrors.New(apperrors.InvalidImage, "decode frame: empty image")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev, hadPrev := p.prevGray, p.hasPrev
	p.prevGray, p.hasPrev = gray, true
	if !hadPrev {
		return nil, false, nil
	}
	defer prev.Close()
	if prev.Rows() != gray.Rows() || prev.Cols() != gray.Cols() {
		return nil, false, nil
	}

	// Text present in both frames keeps full contrast; text in only one is
	// faded to half.
	out := gocv.NewMat()
	defer out.Close()
	gocv.AddWeighted(prev, 0.5, gray, 0.5, 0, &out)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, out)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.InvalidImage, "encode union frame")
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), true, nil
}

// Reset drops the frame history.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasSum = false
	if p.hasPrev {
		p.prevGray.Close()
		p.hasPrev = false
	}
}

// Close releases native memory.
func (p *Processor) Close() {
	p.Reset()
}
