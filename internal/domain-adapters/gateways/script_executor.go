package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/ochairo/releaser/internal/domain/entities"
	"github.com/ochairo/releaser/internal/domain/interfaces"
	"github.com/ochairo/releaser/internal/domain/interfaces/gateways"
)

// ScriptExecutor runs the opaque build, deploy and docs commands
type ScriptExecutor struct {
	defaultTimeout time.Duration
	logger         interfaces.Logger
}

// NewScriptExecutor creates a new script executor
func NewScriptExecutor(logger interfaces.Logger) *ScriptExecutor {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ScriptExecutor{
		defaultTimeout: entities.DefaultCommandTimeout,
		logger:         logger,
	}
}

// ExecuteScript runs a shell script with the given configuration
func (se *ScriptExecutor) ExecuteScript(ctx context.Context, req gateways.ScriptRequest) *gateways.ScriptResult {
	startTime := time.Now()
	result := &gateways.ScriptResult{}

	if err := se.ValidateScript(req.Script); err != nil {
		result.Error = err
		result.ExitCode = -1
		return result
	}

	// Use default timeout if not specified
	timeout := req.Timeout
	if timeout == 0 {
		timeout = se.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Use /bin/sh for maximum compatibility
	//nolint:gosec // G204: Script execution is intentional and controlled by configuration
	cmd := exec.CommandContext(execCtx, "/bin/sh", "-c", req.Script)

	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}

	env := os.Environ()
	for key, value := range req.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if req.Description != "" {
		se.logger.Info("Executing command",
			interfaces.F("step", req.Description),
			interfaces.F("dir", req.WorkingDir))
	}

	err := cmd.Run()
	result.Duration = time.Since(startTime)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("script execution timeout after %v", timeout)
			result.ExitCode = -1
		} else if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -1
		}
		se.logger.Debug("Command failed",
			interfaces.F("step", req.Description),
			interfaces.F("exit_code", result.ExitCode),
			interfaces.F("duration", result.Duration))
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}

// ValidateScript performs basic validation on a shell script
func (se *ScriptExecutor) ValidateScript(script string) error {
	if strings.TrimSpace(script) == "" {
		return fmt.Errorf("script is empty")
	}

	// Check for potentially dangerous commands (basic security check)
	dangerous := []string{
		"rm -rf /",
		"mkfs",
		"dd if=/dev/zero",
		":(){:|:&};:", // fork bomb
	}

	for _, pattern := range dangerous {
		if strings.Contains(script, pattern) {
			return fmt.Errorf("script contains potentially dangerous pattern: %s", pattern)
		}
	}

	return nil
}
