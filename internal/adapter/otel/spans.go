package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "agentbridge"

// StartToolCallSpan starts a span for one MCP tool call.
func StartToolCallSpan(ctx context.Context, requestID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("toolcall.id", requestID),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartTaskSpan starts a span covering a backend process from spawn to terminal state.
func StartTaskSpan(ctx context.Context, taskID, backend string, pid int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task",
		trace.WithAttributes(
			attribute.String("task.id", taskID),
			attribute.String("task.backend", backend),
			attribute.Int("task.pid", pid),
		),
	)
}
