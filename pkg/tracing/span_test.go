package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestChildSpansInheritTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "request", "trace-1")
	_, child := StartChildSpan(ctx, "search.execute")
	child.SetAttr("results", 3)
	child.End()
	root.End()

	if child.TraceID != "trace-1" {
		t.Errorf("child TraceID = %q, want trace-1", child.TraceID)
	}
	if len(root.Children) != 1 || root.Children[0] != child {
		t.Fatalf("root children = %v", root.Children)
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)))
	out := buf.String()
	if strings.Count(out, "msg=span") != 2 {
		t.Errorf("expected two span records, got:\n%s", out)
	}
	if !strings.Contains(out, "span=search.execute") || !strings.Contains(out, "results=3") {
		t.Errorf("child span missing from log:\n%s", out)
	}
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	if SpanFromContext(ctx) != span {
		t.Error("span not stored in context")
	}
	if span.TraceID != "" {
		t.Errorf("orphan TraceID = %q, want empty", span.TraceID)
	}
}

func TestEndIsIdempotent(t *testing.T) {
	_, span := StartSpan(context.Background(), "x", "t")
	span.End()
	first := span.EndTime
	span.End()
	if !span.EndTime.Equal(first) {
		t.Error("second End changed EndTime")
	}
}
