package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/Strob0t/agentbridge/internal/adapter/outputparse"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/preset"
	"github.com/Strob0t/agentbridge/internal/domain/prompt"
	"github.com/Strob0t/agentbridge/internal/domain/task"
	"github.com/Strob0t/agentbridge/internal/port/agentbackend"
)

// taskResult is a task snapshot plus, once completed, its parsed output.
type taskResult struct {
	task.Snapshot
	Output *outputparse.ParsedOutput `json:"output,omitempty"`
}

// registerTools registers every tool; the preset decides which are usable.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.promptTool(),
		s.runTool(),
		s.waitTool(),
		s.getResultTool(),
		s.killTaskTool(),
		s.listTasksTool(),
		s.researchTool(),
		s.analyzeCodeTool(),
		s.clinkTool(),
	)
}

func backendParam() mcplib.ToolOption {
	return mcplib.WithString("backend",
		mcplib.Description("Backend to use (claude, codex, gemini, qwen, ollama). Defaults to the first available backend"),
	)
}

func modelParam() mcplib.ToolOption {
	return mcplib.WithString("model",
		mcplib.Description("Model override passed to the backend CLI"),
	)
}

func (s *Server) promptTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolPrompt,
		mcplib.WithDescription("Send a prompt to a backend and wait for the answer"),
		mcplib.WithString("prompt",
			mcplib.Required(),
			mcplib.Description("The prompt text"),
		),
		backendParam(),
		modelParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolPrompt, s.handlePrompt)}
}

func (s *Server) runTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolRun,
		mcplib.WithDescription("Start a prompt on a backend in the background and return its task ID"),
		mcplib.WithString("prompt",
			mcplib.Required(),
			mcplib.Description("The prompt text"),
		),
		backendParam(),
		mcplib.WithNumber("timeout",
			mcplib.Description("Task deadline in seconds. Defaults to the bridge task timeout"),
			mcplib.Min(1),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolRun, s.handleRun)}
}

func (s *Server) waitTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolWait,
		mcplib.WithDescription("Wait until the given tasks finish or the timeout elapses"),
		mcplib.WithArray("task_ids",
			mcplib.Required(),
			mcplib.Description("Task IDs returned by run"),
			mcplib.Items(map[string]any{"type": "string"}),
		),
		mcplib.WithNumber("timeout",
			mcplib.Description("Maximum seconds to wait. Defaults to the bridge task timeout"),
			mcplib.Min(0),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolWait, s.handleWait)}
}

func (s *Server) getResultTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolGetResult,
		mcplib.WithDescription("Get the state and output of a task"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID to look up"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolGetResult, s.handleGetResult)}
}

func (s *Server) killTaskTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolKillTask,
		mcplib.WithDescription("Terminate a running task and its child processes"),
		mcplib.WithString("task_id",
			mcplib.Required(),
			mcplib.Description("The task ID to kill"),
		),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolKillTask, s.handleKillTask)}
}

func (s *Server) listTasksTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolListTasks,
		mcplib.WithDescription("List tasks, newest first. Finished tasks are kept for 30 minutes"),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolListTasks, s.handleListTasks)}
}

func (s *Server) researchTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolResearch,
		mcplib.WithDescription("Research a question about the codebase and wait for the answer"),
		mcplib.WithString("query",
			mcplib.Required(),
			mcplib.Description("The question to research"),
		),
		backendParam(),
		mcplib.WithArray("files",
			mcplib.Description("Files to focus on"),
			mcplib.Items(map[string]any{"type": "string"}),
		),
		modelParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolResearch, s.handleResearch)}
}

func (s *Server) analyzeCodeTool() mcpserver.ServerTool {
	types := make([]string, 0, len(prompt.AnalysisTypes()))
	for _, at := range prompt.AnalysisTypes() {
		types = append(types, string(at))
	}
	tool := mcplib.NewTool(preset.ToolAnalyzeCode,
		mcplib.WithDescription("Analyze code or a file path and wait for the answer"),
		mcplib.WithString("code_or_path",
			mcplib.Required(),
			mcplib.Description("Source code, or a path the backend can read"),
		),
		mcplib.WithString("analysis_type",
			mcplib.Required(),
			mcplib.Description("Kind of analysis"),
			mcplib.Enum(types...),
		),
		backendParam(),
		modelParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolAnalyzeCode, s.handleAnalyzeCode)}
}

func (s *Server) clinkTool() mcpserver.ServerTool {
	tool := mcplib.NewTool(preset.ToolClink,
		mcplib.WithDescription("Run an isolated subagent with its own system prompt and wait for the answer"),
		mcplib.WithString("system_prompt",
			mcplib.Required(),
			mcplib.Description("System prompt defining the subagent"),
		),
		mcplib.WithString("prompt",
			mcplib.Required(),
			mcplib.Description("The task for the subagent"),
		),
		backendParam(),
		modelParam(),
	)
	return mcpserver.ServerTool{Tool: tool, Handler: s.guard(preset.ToolClink, s.handleClink)}
}

func (s *Server) handlePrompt(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	text, err := req.RequireString("prompt")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.runSync(ctx, agentbackend.SpawnRequest{
		Backend: req.GetString("backend", ""),
		Prompt:  text,
		Model:   req.GetString("model", ""),
	}), nil
}

func (s *Server) handleRun(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	text, err := req.RequireString("prompt")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	spawn := agentbackend.SpawnRequest{
		Backend: req.GetString("backend", ""),
		Prompt:  text,
		Timeout: seconds(req.GetFloat("timeout", 0)),
	}
	id, name, err := s.spawn(ctx, spawn)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to start task", err), nil
	}
	return toolResultJSON(map[string]string{
		"task_id": id,
		"backend": name,
		"status":  string(task.StatusRunning),
	}), nil
}

func (s *Server) handleWait(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	ids := req.GetStringSlice("task_ids", nil)
	if len(ids) == 0 {
		return mcplib.NewToolResultError("task_ids is required"), nil
	}
	timeout := s.deps.Runner.DefaultTimeout()
	if secs := req.GetFloat("timeout", -1); secs >= 0 {
		timeout = seconds(secs)
	}

	snaps := s.deps.Runner.WaitFor(ctx, ids, timeout)
	results := make([]taskResult, 0, len(snaps))
	allDone := len(snaps) == len(ids)
	for _, snap := range snaps {
		results = append(results, s.withOutput(snap))
		if !snap.Status.Terminal() {
			allDone = false
		}
	}
	return toolResultJSON(map[string]any{
		"tasks":    results,
		"all_done": allDone,
	}), nil
}

func (s *Server) handleGetResult(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	id, err := req.RequireString("task_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	snap, ok := s.deps.Runner.Get(id)
	if !ok {
		return mcplib.NewToolResultError(fmt.Sprintf("task %s not found", id)), nil
	}
	return toolResultJSON(s.withOutput(snap)), nil
}

func (s *Server) handleKillTask(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	id, err := req.RequireString("task_id")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	snap, err := s.deps.Runner.Kill(id)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to kill task", err), nil
	}
	return toolResultJSON(snap), nil
}

func (s *Server) handleListTasks(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	tasks := s.deps.Runner.List()
	return toolResultJSON(map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	}), nil
}

func (s *Server) handleResearch(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	query, err := req.RequireString("query")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.runSync(ctx, agentbackend.SpawnRequest{
		Backend: req.GetString("backend", ""),
		Prompt:  prompt.Research(query, req.GetStringSlice("files", nil)),
		Model:   req.GetString("model", ""),
	}), nil
}

func (s *Server) handleAnalyzeCode(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	code, err := req.RequireString("code_or_path")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("analysis_type")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	at, err := prompt.ParseAnalysisType(raw)
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.runSync(ctx, agentbackend.SpawnRequest{
		Backend: req.GetString("backend", ""),
		Prompt:  prompt.Analysis(at, code),
		Model:   req.GetString("model", ""),
	}), nil
}

func (s *Server) handleClink(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	system, err := req.RequireString("system_prompt")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("prompt")
	if err != nil {
		return mcplib.NewToolResultError(err.Error()), nil
	}
	return s.runSync(ctx, agentbackend.SpawnRequest{
		Backend:      req.GetString("backend", ""),
		Prompt:       text,
		Model:        req.GetString("model", ""),
		SystemPrompt: system,
	}), nil
}

// spawn resolves the default backend and starts the task.
func (s *Server) spawn(ctx context.Context, req agentbackend.SpawnRequest) (id, backendName string, err error) {
	if req.Backend == "" {
		backends := s.deps.Runner.Backends()
		if len(backends) == 0 {
			return "", "", domain.ErrNoBackends
		}
		req.Backend = backends[0].Name
	}
	id, err = s.deps.Runner.Spawn(ctx, req)
	if err != nil {
		return "", "", err
	}
	return id, req.Backend, nil
}

// runSync spawns a task and blocks until it is terminal. The task deadline
// bounds the wait; a cancelled request kills the task.
func (s *Server) runSync(ctx context.Context, req agentbackend.SpawnRequest) *mcplib.CallToolResult {
	id, _, err := s.spawn(ctx, req)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to start task", err)
	}

	snap, err := s.deps.Runner.Await(ctx, id)
	if err != nil {
		if _, kerr := s.deps.Runner.Kill(id); kerr != nil {
			slog.DebugContext(ctx, "kill abandoned task", "task_id", id, "error", kerr)
		}
		return mcplib.NewToolResultErrorFromErr("task abandoned", err)
	}
	return toolResultJSON(s.withOutput(snap))
}

// withOutput attaches parsed output to completed tasks.
func (s *Server) withOutput(snap task.Snapshot) taskResult {
	res := taskResult{Snapshot: snap}
	if snap.Status != task.StatusCompleted {
		return res
	}
	out := outputparse.Raw(snap.Stdout)
	if cfg, ok := s.deps.Runner.Backend(snap.Backend); ok {
		out = outputparse.Parse(cfg.Format, snap.Stdout)
	}
	res.Output = &out
	return res
}

// toolResultJSON marshals v into a text tool result.
func toolResultJSON(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err)
	}
	return mcplib.NewToolResultText(string(data))
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}
