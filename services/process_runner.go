package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"quoteapi-server/models"
)

// Error classes of the execution engine. Script errors cover anything
// the interpreter reported; infrastructure errors cover failures to get
// the interpreter running at all.
var (
	ErrScript         = errors.New("脚本执行失败")
	ErrInfrastructure = errors.New("执行环境错误")
)

// ProcessRunner executes assembled scripts, one subprocess per run.
// Isolation is the OS process boundary plus the wall-clock timeout.
type ProcessRunner struct {
	tempDir string
	python  string
}

func NewProcessRunner() (*ProcessRunner, error) {
	tempDir := filepath.Join(os.TempDir(), "quoteapi-endpoints")
	if err := os.MkdirAll(tempDir, 0700); err != nil {
		return nil, err
	}

	return &ProcessRunner{
		tempDir: tempDir,
		python:  pythonCommand(),
	}, nil
}

func pythonCommand() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// Run persists the script to a transient file, executes it and parses
// the JSON it prints. The transient file is removed on every exit path;
// cancelling ctx (client disconnect) kills the interpreter.
func (r *ProcessRunner) Run(ctx context.Context, script models.Script, timeout time.Duration) (json.RawMessage, error) {
	name := fmt.Sprintf("endpoint_%d_%s.py", time.Now().UnixMilli(), uuid.NewString()[:8])
	path := filepath.Join(r.tempDir, name)

	if err := os.WriteFile(path, []byte(script.Source), 0600); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfrastructure, err)
	}
	defer os.Remove(path)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.python, path)
	cmd.Env = sanitizedEnv()
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(script.Input)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%w: 代码执行超时（%v）", ErrScript, timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			detail := strings.TrimSpace(stderr.String())
			if detail == "" {
				detail = "代码执行失败"
			}
			return nil, fmt.Errorf("%w: %s", ErrScript, detail)
		}
		return nil, fmt.Errorf("%w: Python执行错误: %v", ErrInfrastructure, err)
	}

	trimmed := bytes.TrimSpace(stdout.Bytes())
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%w: 返回值格式错误，必须返回有效的JSON", ErrScript)
	}

	return json.RawMessage(trimmed), nil
}

// sanitizedEnv keeps only what the interpreter needs; in particular no
// inherited module search path.
func sanitizedEnv() []string {
	env := []string{
		"PYTHONPATH=",
		"PYTHONIOENCODING=utf-8",
		"PATH=" + os.Getenv("PATH"),
	}
	if runtime.GOOS == "windows" {
		env = append(env, "SYSTEMROOT="+os.Getenv("SYSTEMROOT"))
	}
	return env
}
