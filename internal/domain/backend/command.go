package backend

import (
	"errors"
	"fmt"
	"strings"
)

// Request is a logical invocation of a backend.
type Request struct {
	Prompt       string
	Model        string // overrides the configured model when set
	SystemPrompt string
	AutoApprove  bool
}

// Command is an executable invocation: binary plus argument list.
type Command struct {
	Binary string
	Args   []string
}

// Build translates req into the exact argument list for cfg's CLI.
//
// The local model runner uses "run <model> <prompt>". Every other backend
// uses "[auto-approve-flag] [--model X] -p <prompt>". Only backends with
// native support get --system-prompt; the rest receive the system prompt
// folded into the prompt text with SYSTEM:/TASK: markers.
func Build(cfg Config, req Request) (Command, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return Command{}, errors.New("prompt is required")
	}
	if cfg.Binary == "" {
		return Command{}, fmt.Errorf("backend %s: no binary resolved", cfg.Name)
	}

	model := cfg.Model
	if req.Model != "" {
		model = req.Model
	}

	prompt := req.Prompt
	if req.SystemPrompt != "" && !cfg.NativeSystemPrompt {
		prompt = InlineSystemPrompt(req.SystemPrompt, req.Prompt)
	}

	if cfg.LocalModel {
		if model == "" {
			return Command{}, fmt.Errorf("backend %s: model is required", cfg.Name)
		}
		return Command{Binary: cfg.Binary, Args: []string{"run", model, prompt}}, nil
	}

	var args []string
	if req.AutoApprove && cfg.AutoApprove != "" {
		args = append(args, cfg.AutoApprove)
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if req.SystemPrompt != "" && cfg.NativeSystemPrompt {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	args = append(args, "-p", prompt)

	return Command{Binary: cfg.Binary, Args: args}, nil
}

// InlineSystemPrompt prepends a system prompt to the task text for CLIs
// without a native system prompt flag.
func InlineSystemPrompt(system, task string) string {
	return "SYSTEM: " + system + "\n\nTASK: " + task
}
