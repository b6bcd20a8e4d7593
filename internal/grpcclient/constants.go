package grpcclient

import "time"

// Client configuration defaults
const (
	// Keepalive configuration
	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second

	// Health check configuration
	HealthCheckTimeout = 2 * time.Second

	// Per-call deadline for a single OCR request
	RecognizeTimeout = 5 * time.Second
)

// OCR service naming on the wire.
const (
	protoFile       = "screenlate/ocr/v1/ocr.proto"
	protoPackage    = "screenlate.ocr.v1"
	ServiceName     = protoPackage + ".OCRService"
	recognizeMethod = "/" + ServiceName + "/Recognize"
)
