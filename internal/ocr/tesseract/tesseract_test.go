package tesseract

import (
	"testing"

	"github.com/otiai10/gosseract/v2"
)

func TestLanguageCode(t *testing.T) {
	tests := []struct{ in, want string }{
		{"en", "eng"},
		{"RU", "rus"},
		{"ja", "jpn"},
		{"zh-TW", "chi_tra"},
		{"eng", "eng"},
	}
	for _, tt := range tests {
		if got := LanguageCode(tt.in); got != tt.want {
			t.Errorf("LanguageCode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPageSegMode(t *testing.T) {
	tests := []struct {
		mode string
		want gosseract.PageSegMode
	}{
		{"", gosseract.PSM_AUTO},
		{ModeAuto, gosseract.PSM_AUTO},
		{ModeBlock, gosseract.PSM_SINGLE_BLOCK},
		{ModeSparse, gosseract.PSM_SPARSE_TEXT},
		{ModeThreshold, gosseract.PSM_AUTO},
	}
	for _, tt := range tests {
		if got := pageSegMode(tt.mode); got != tt.want {
			t.Errorf("pageSegMode(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestThresholdRejectsGarbage(t *testing.T) {
	if _, err := threshold([]byte("not an image")); err == nil {
		t.Error("threshold() should fail on undecodable input")
	}
}
