// Package errors provides the unified error taxonomy for the capture/detect/translate pipeline.
// Every failure that crosses a component boundary is an *AppError carrying a Code, so the
// scheduler can classify it at the loop boundary without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Domain is reported in gRPC ErrorInfo details.
const Domain = "screenlate"

// Metadata keys.
const (
	MetaEngine      = "engine"
	MetaCaptureCode = "capture_code"
)

// Code classifies an AppError.
type Code int

const (
	Unknown Code = iota
	Internal
	InvalidArgument
	Unavailable
	Timeout
	Cancelled
	CaptureFailed
	CapturerInit
	DetectionFailed
	InvalidImage
	TranslationFailed
	TranslationRateLimited
	LocalDBFailed
	ConfigInvalid
	ConfigMissing
	SpeechFailed
)

var codeNames = map[Code]string{
	Unknown:                "UNKNOWN",
	Internal:               "INTERNAL",
	InvalidArgument:        "INVALID_ARGUMENT",
	Unavailable:            "UNAVAILABLE",
	Timeout:                "TIMEOUT",
	Cancelled:              "CANCELLED",
	CaptureFailed:          "CAPTURE_FAILED",
	CapturerInit:           "CAPTURER_INIT_FAILED",
	DetectionFailed:        "DETECTION_FAILED",
	InvalidImage:           "INVALID_IMAGE",
	TranslationFailed:      "TRANSLATION_FAILED",
	TranslationRateLimited: "TRANSLATION_RATE_LIMITED",
	LocalDBFailed:          "LOCAL_DB_FAILED",
	ConfigInvalid:          "CONFIG_INVALID",
	ConfigMissing:          "CONFIG_MISSING",
	SpeechFailed:           "SPEECH_FAILED",
}

func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "CODE_" + strconv.Itoa(int(c))
}

// grpcCodeMap maps error codes to gRPC status codes.
var grpcCodeMap = map[Code]codes.Code{
	Unknown:                codes.Unknown,
	Internal:               codes.Internal,
	InvalidArgument:        codes.InvalidArgument,
	Unavailable:            codes.Unavailable,
	Timeout:                codes.DeadlineExceeded,
	Cancelled:              codes.Canceled,
	CaptureFailed:          codes.Internal,
	CapturerInit:           codes.Unavailable,
	DetectionFailed:        codes.Internal,
	InvalidImage:           codes.InvalidArgument,
	TranslationFailed:      codes.Internal,
	TranslationRateLimited: codes.ResourceExhausted,
	LocalDBFailed:          codes.Internal,
	ConfigInvalid:          codes.InvalidArgument,
	ConfigMissing:          codes.FailedPrecondition,
	SpeechFailed:           codes.Internal,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// GRPCCode returns the corresponding gRPC status code.
func (e *AppError) GRPCCode() codes.Code {
	if c, ok := grpcCodeMap[e.Code]; ok {
		return c
	}
	return codes.Unknown
}

// GRPCStatus returns a gRPC status with an ErrorInfo detail attached.
func (e *AppError) GRPCStatus() *status.Status {
	st := status.New(e.GRPCCode(), e.Error())
	info := &errdetails.ErrorInfo{Reason: e.Code.String(), Domain: Domain, Metadata: e.Metadata}
	if withInfo, err := st.WithDetails(info); err == nil {
		return withInfo
	}
	return st
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Capture reports a failed screen capture. code is the backend-specific failure code.
func Capture(code int, err error) *AppError {
	return Wrap(err, CaptureFailed, "screen capture failed").
		WithMetadata(MetaCaptureCode, strconv.Itoa(code))
}

// Detection reports a failed OCR call on the named engine.
func Detection(engine string, err error) *AppError {
	return Wrapf(err, DetectionFailed, "text detection failed on %s", engine).
		WithMetadata(MetaEngine, engine)
}

// Translation reports a failed translation call.
func Translation(err error) *AppError {
	if IsCode(err, TranslationFailed) || IsCode(err, TranslationRateLimited) {
		var app *AppError
		stderrors.As(err, &app)
		return app
	}
	return Wrap(err, TranslationFailed, "text translation failed")
}

// FromGRPCError extracts an AppError from a gRPC error.
func FromGRPCError(err error) *AppError {
	st, ok := status.FromError(err)
	if !ok {
		return &AppError{Code: Unknown, Message: err.Error(), Cause: err}
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			for c, name := range codeNames {
				if name == info.GetReason() {
					return &AppError{Code: c, Message: st.Message(), Metadata: info.GetMetadata(), Cause: err}
				}
			}
		}
	}

	return &AppError{Code: fromGRPCCode(st.Code()), Message: st.Message(), Cause: err}
}

// fromGRPCCode maps gRPC codes back to our error codes (best effort).
func fromGRPCCode(c codes.Code) Code {
	switch c {
	case codes.InvalidArgument:
		return InvalidArgument
	case codes.Unavailable:
		return Unavailable
	case codes.DeadlineExceeded:
		return Timeout
	case codes.Canceled:
		return Cancelled
	case codes.Internal:
		return Internal
	case codes.FailedPrecondition:
		return ConfigMissing
	case codes.ResourceExhausted:
		return TranslationRateLimited
	default:
		return Unknown
	}
}

// CodeOf returns the code of the outermost AppError in err's chain, or Unknown.
func CodeOf(err error) Code {
	var app *AppError
	if stderrors.As(err, &app) {
		return app.Code
	}
	return Unknown
}

// IsCode checks if an error chain carries an AppError with a specific code.
func IsCode(err error, code Code) bool {
	var app *AppError
	if !stderrors.As(err, &app) {
		return false
	}
	return app.Code == code
}

// EngineOf returns the engine id attached to a detection error.
func EngineOf(err error) string {
	var app *AppError
	if !stderrors.As(err, &app) {
		return ""
	}
	return app.Metadata[MetaEngine]
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case Unavailable, Timeout, TranslationRateLimited:
		return true
	default:
		return false
	}
}
