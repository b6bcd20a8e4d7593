//go:build linux || windows

package screen

import "github.com/vova616/screenshot"

type screenshotBackend struct{}

func (screenshotBackend) grab(r Region) ([]byte, error) {
	if r.Empty() {
		full, err := screenshot.ScreenRect()
		if err != nil {
			return nil, err
		}
		r = full
	}
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, err
	}
	return encodePNG(img)
}

func (screenshotBackend) cleanup() {}

func newBackend() (backend, string, error) {
	return screenshotBackend{}, "", nil
}
