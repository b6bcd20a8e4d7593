//go:build darwin

package screen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

type darwinBackend struct{ tempDir string }

func (d *darwinBackend) grab(r Region) ([]byte, error) {
	tmpFile := filepath.Join(d.tempDir, "frame.png")
	args := []string{"-x", "-t", "png"}
	if r.Empty() {
		args = append(args, "-m")
	} else {
		args = append(args, "-R", fmt.Sprintf("%d,%d,%d,%d", r.Min.X, r.Min.Y, r.Dx(), r.Dy()))
	}
	cmd := exec.Command("screencapture", append(args, tmpFile)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("screencapture: %w: %s", err, stderr.String())
	}
	defer os.Remove(tmpFile)
	return os.ReadFile(tmpFile)
}

func (d *darwinBackend) cleanup() {}

func newBackend() (backend, string, error) {
	tmpDir, err := os.MkdirTemp("", "screenlate-capture-*")
	if err != nil {
		return nil, "", err
	}
	return &darwinBackend{tempDir: tmpDir}, tmpDir, nil
}
