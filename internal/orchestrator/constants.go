// Package orchestrator drives the capture, detect and translate pipeline.
package orchestrator

import "time"

// Scheduler configuration constants
const (
	// Unfinished translation tasks above which a tick skips capture.
	MaxTranslateTaskPool = 2

	// A progress notice is sent every time this many characters went to the translator.
	CharNoticeQuantum = 5000

	// Inter-iteration delays
	SequentialDelay = 1600 * time.Millisecond
	FullDelay       = 1200 * time.Millisecond
	ShortDelay      = 800 * time.Millisecond

	// Bounded wait for the translation started by ProcessOnce.
	OnceTranslationTimeout = 10 * time.Second
)

// User-visible notices
const (
	NoticeNoEngine          = "No OCR engine is selected!"
	NoticeStarted           = "Translation started"
	NoticeFinished          = "Translation finished"
	NoticeCapturerInit      = "Failed to initialize capturer. Please check logs for details"
	NoticeTranslationFailed = "Text translation is failed"

	noticeCaptureFailed   = "Failed to capture screen (%s)"
	noticeDetectionFailed = "Text detection is failed (%s)"
	noticeUnknown         = "Unknown error: %s"
	noticeProgress        = "(%d characters sent to translation so far)"
)
