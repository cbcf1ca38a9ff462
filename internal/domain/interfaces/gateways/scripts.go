package gateways

import (
	"context"
	"time"
)

// ScriptRequest describes one opaque shell command.
type ScriptRequest struct {
	Script      string
	WorkingDir  string
	Env         map[string]string
	Timeout     time.Duration
	Description string
}

// ScriptResult contains the result of script execution
type ScriptResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// ScriptRunner runs build, deploy and docs commands.
type ScriptRunner interface {
	ExecuteScript(ctx context.Context, req ScriptRequest) *ScriptResult
}
