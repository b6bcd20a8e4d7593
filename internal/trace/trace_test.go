package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

func TestNewContext(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("trace ID should be 32 chars, got %d", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("span ID should be 16 chars, got %d", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Error("new context should not have parent span ID")
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Error("child should inherit trace ID")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Error("child's parent should be parent's span ID")
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	if len(tc.TraceID) != 32 {
		t.Error("should create trace ID")
	}
	if _, tc2 := EnsureContext(ctx); tc2.TraceID != tc.TraceID {
		t.Error("should return existing trace")
	}
}

func TestIterationRoundTrip(t *testing.T) {
	id := uuid.New()
	ctx := WithIteration(context.Background(), id)

	got, ok := IterationFrom(ctx)
	if !ok || got != id {
		t.Errorf("IterationFrom() = (%v, %v), want (%v, true)", got, ok, id)
	}
	if _, ok := IterationFrom(context.Background()); ok {
		t.Error("empty context should not carry an iteration")
	}
}

func TestInjectMetadata(t *testing.T) {
	id := uuid.New()
	tc := New()
	ctx := WithIteration(WithContext(context.Background(), tc), id)

	md, _ := metadata.FromOutgoingContext(injectMetadata(ctx))
	if got := md.Get(TraceIDKey); len(got) != 1 || got[0] != tc.TraceID {
		t.Errorf("trace id metadata = %v, want %s", got, tc.TraceID)
	}
	if got := md.Get(IterationIDKey); len(got) != 1 || got[0] != id.String() {
		t.Errorf("iteration id metadata = %v, want %s", got, id)
	}
}

func TestMiddleware(t *testing.T) {
	var seen Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TraceIDKey, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen.TraceID != "abc" {
		t.Errorf("TraceID = %q, want abc", seen.TraceID)
	}
	if rec.Header().Get(TraceIDKey) != "abc" {
		t.Errorf("response header = %q, want abc", rec.Header().Get(TraceIDKey))
	}
}

func TestExtractFromJSON(t *testing.T) {
	tc, ok := ExtractFromJSON([]byte(`{"type":"start","trace_id":"t1"}`))
	if !ok || tc.TraceID != "t1" {
		t.Errorf("ExtractFromJSON() = (%v, %v), want t1", tc, ok)
	}
	if _, ok := ExtractFromJSON([]byte(`{"type":"start"}`)); ok {
		t.Error("missing trace_id should report false")
	}
}

func TestStartSpan(t *testing.T) {
	ctx, parent := StartSpan(context.Background(), "tick")
	_, child := StartSpan(ctx, "detect")

	if child.Ctx.TraceID != parent.Ctx.TraceID {
		t.Error("child should inherit trace ID")
	}
	child.SetAttr("engine", "tesseract")
	child.End()
	if child.Duration() < 0 {
		t.Error("duration should not be negative")
	}
	if child.Attrs["engine"] != "tesseract" {
		t.Error("span attribute mismatch")
	}
}

func TestLogger(t *testing.T) {
	ctx := WithIteration(WithContext(context.Background(), New()), uuid.New())
	Logger(ctx).Info("test message")
	Logger(context.Background()).Info("plain")
}
