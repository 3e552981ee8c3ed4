package trace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewIDLengths(t *testing.T) {
	tc := New()
	if len(tc.TraceID) != 32 {
		t.Errorf("len(TraceID) = %d, want 32", len(tc.TraceID))
	}
	if len(tc.SpanID) != 16 {
		t.Errorf("len(SpanID) = %d, want 16", len(tc.SpanID))
	}
	if tc.ParentSpanID != "" {
		t.Errorf("ParentSpanID = %q, want empty", tc.ParentSpanID)
	}
}

func TestIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := New().TraceID
		if seen[id] {
			t.Fatalf("duplicate trace id %s", id)
		}
		seen[id] = true
	}
}

func TestNewChild(t *testing.T) {
	parent := New()
	child := NewChild(parent)

	if child.TraceID != parent.TraceID {
		t.Errorf("child.TraceID = %s, want %s", child.TraceID, parent.TraceID)
	}
	if child.SpanID == parent.SpanID {
		t.Error("child reused parent span id")
	}
	if child.ParentSpanID != parent.SpanID {
		t.Errorf("child.ParentSpanID = %s, want %s", child.ParentSpanID, parent.SpanID)
	}
}

func TestEnsureContext(t *testing.T) {
	ctx, tc := EnsureContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != tc {
		t.Fatalf("FromContext = %v, %v, want %v, true", got, ok, tc)
	}

	_, again := EnsureContext(ctx)
	if again != tc {
		t.Errorf("EnsureContext replaced existing trace: %v, want %v", again, tc)
	}
}

func TestStartSpanNestsUnderParent(t *testing.T) {
	root := New()
	ctx := WithContext(context.Background(), root)

	_, span := StartSpan(ctx, "process_frame")
	if span.Ctx.TraceID != root.TraceID {
		t.Errorf("span trace = %s, want %s", span.Ctx.TraceID, root.TraceID)
	}
	if span.Ctx.ParentSpanID != root.SpanID {
		t.Errorf("span parent = %s, want %s", span.Ctx.ParentSpanID, root.SpanID)
	}

	_, orphan := StartSpan(context.Background(), "sample")
	if orphan.Ctx.ParentSpanID != "" {
		t.Errorf("orphan parent = %s, want empty", orphan.Ctx.ParentSpanID)
	}
}

func TestSpanAttrsAndDuration(t *testing.T) {
	_, span := StartSpan(context.Background(), "process_frame")
	if span.Duration() != 0 {
		t.Errorf("Duration before End = %v, want 0", span.Duration())
	}

	span.SetAttr("ink", 3)
	span.SetAttr("ink", 4)
	span.End()
	end := span.EndTime
	span.End()

	if v, ok := span.Attr("ink"); !ok || v != int64(4) {
		t.Errorf("Attr(ink) = %v, %v, want 4, true", v, ok)
	}
	if span.EndTime != end {
		t.Error("second End moved the end time")
	}
	if len(span.LogValue().Group()) != 4 {
		t.Errorf("LogValue has %d attrs, want 4", len(span.LogValue().Group()))
	}
}

func TestMiddleware(t *testing.T) {
	var got Context
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(TraceIDKey, "0123456789abcdef0123456789abcdef")
	req.Header.Set(SpanIDKey, "0011223344556677")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got.TraceID != "0123456789abcdef0123456789abcdef" {
		t.Errorf("TraceID = %s, want header value", got.TraceID)
	}
	if got.ParentSpanID != "0011223344556677" {
		t.Errorf("ParentSpanID = %s, want 0011223344556677", got.ParentSpanID)
	}
	if rec.Header().Get(TraceIDKey) != got.TraceID {
		t.Errorf("response %s = %s, want %s", TraceIDKey, rec.Header().Get(TraceIDKey), got.TraceID)
	}
}

func TestFromMessage(t *testing.T) {
	tc, ok := FromMessage([]byte(`{"type":"sample","trace_id":"abc"}`))
	if !ok || tc.TraceID != "abc" {
		t.Errorf("FromMessage = %v, %v, want abc, true", tc.TraceID, ok)
	}
	if _, ok := FromMessage([]byte(`{"type":"cancel"}`)); ok {
		t.Error("FromMessage found a trace id in a message without one")
	}
	if _, ok := FromMessage([]byte(`not json`)); ok {
		t.Error("FromMessage accepted invalid json")
	}
}
