package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentbridge"

// Metrics holds all agentbridge metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	TasksStarted  metric.Int64Counter
	TasksFinished metric.Int64Counter
	TasksRunning  metric.Int64UpDownCounter
	TaskDuration  metric.Float64Histogram
	ToolCalls     metric.Int64Counter
	ToolDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksStarted, err = meter.Int64Counter("agentbridge.tasks.started",
		metric.WithDescription("Number of backend tasks spawned"))
	if err != nil {
		return nil, err
	}

	m.TasksFinished, err = meter.Int64Counter("agentbridge.tasks.finished",
		metric.WithDescription("Number of backend tasks that reached a terminal state"))
	if err != nil {
		return nil, err
	}

	m.TasksRunning, err = meter.Int64UpDownCounter("agentbridge.tasks.running",
		metric.WithDescription("Number of backend tasks currently running"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("agentbridge.task.duration_seconds",
		metric.WithDescription("Backend task duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("agentbridge.toolcalls",
		metric.WithDescription("Number of MCP tool calls"))
	if err != nil {
		return nil, err
	}

	m.ToolDuration, err = meter.Float64Histogram("agentbridge.toolcall.duration_seconds",
		metric.WithDescription("MCP tool call duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// TaskStarted records a spawn.
func (m *Metrics) TaskStarted(ctx context.Context, backend string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("backend", backend))
	m.TasksStarted.Add(ctx, 1, attrs)
	m.TasksRunning.Add(ctx, 1, attrs)
}

// TaskFinished records a terminal transition.
func (m *Metrics) TaskFinished(ctx context.Context, backend, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TasksRunning.Add(ctx, -1, metric.WithAttributes(attribute.String("backend", backend)))
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	)
	m.TasksFinished.Add(ctx, 1, attrs)
	m.TaskDuration.Record(ctx, d.Seconds(), attrs)
}

// ToolCall records one tool invocation and its outcome.
func (m *Metrics) ToolCall(ctx context.Context, tool string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("ok", ok),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolDuration.Record(ctx, d.Seconds(), attrs)
}
