package tools

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const (
	pythonTimeout = 12 * time.Second
	nodeTimeout   = 2 * time.Second
)

// pythonDenylist rejects dangerous imports and builtins statically
// before the interpreter ever sees the code (safe mode).
var pythonDenylist = []string{
	"import os", "from os", "import sys", "from sys", "import subprocess",
	"from subprocess", "import socket", "from socket", "import shutil",
	"from shutil", "import ctypes", "import pathlib", "open(", "__import__",
	"eval(", "exec(", "compile(", "globals(", "locals(", "importlib",
}

// nodeDenylist rejects Node capabilities that escape the sandbox
var nodeDenylist = []string{
	"require(", "process.", "child_process", "import(", "globalthis.process",
	"fs.", "eval(", "function(", "constructor(",
}

// CheckPython statically screens Python source in safe mode
func CheckPython(code string, safeMode bool) error {
	if !safeMode {
		return nil
	}
	lower := strings.ToLower(code)
	for _, banned := range pythonDenylist {
		if strings.Contains(lower, banned) {
			return NewError(ErrUnsafeCode, "blocked pattern %q", banned)
		}
	}
	return nil
}

// CheckJS statically screens JS/TS source in safe mode
func CheckJS(code string, safeMode bool) error {
	if !safeMode {
		return nil
	}
	lower := strings.ToLower(code)
	for _, banned := range nodeDenylist {
		if strings.Contains(lower, banned) {
			return NewError(ErrUnsafeCode, "blocked pattern %q", banned)
		}
	}
	return nil
}

// runProcess executes a command with a hard deadline. On timeout the
// child is killed and ErrTimeout is returned; a non-zero exit returns
// ErrSandbox with the combined output.
func runProcess(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", NewError(ErrTimeout, "process exceeded %s", timeout)
	}
	if err != nil {
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", NewError(ErrSandbox, "%s", msg)
	}
	return out.String(), nil
}

// RunPython executes Python code in the sandbox
func (d *Dispatcher) RunPython(ctx context.Context, code string) (string, error) {
	if len(code) > d.maxInputLen {
		return "", NewError(ErrSandbox, "input exceeds %d characters", d.maxInputLen)
	}
	if err := CheckPython(code, d.safeMode); err != nil {
		return "", err
	}
	return runProcess(ctx, pythonTimeout, d.pythonPath, "-I", "-c", code)
}

// RunJS executes JavaScript or TypeScript in the Node sandbox. TS is
// stripped of type annotations only to the extent Node accepts it; the
// caller labels the language for error messages.
func (d *Dispatcher) RunJS(ctx context.Context, code string) (string, error) {
	if len(code) > d.maxInputLen {
		return "", NewError(ErrSandbox, "input exceeds %d characters", d.maxInputLen)
	}
	if err := CheckJS(code, d.safeMode); err != nil {
		return "", err
	}
	return runProcess(ctx, nodeTimeout, d.nodePath, "--no-experimental-fetch", "-e", code)
}

// RunSympy evaluates a symbolic-math expression through the Python
// sympy runner. The wrapper script is generated here, so the safe-mode
// denylist does not apply to it; the user expression is embedded as a
// string literal.
func (d *Dispatcher) RunSympy(ctx context.Context, expr string) (string, error) {
	if len(expr) > d.maxInputLen {
		return "", NewError(ErrSandbox, "input exceeds %d characters", d.maxInputLen)
	}
	if strings.ContainsAny(expr, "\"\\\n") {
		return "", NewError(ErrUnsafeCode, "expression contains forbidden characters")
	}
	script := `import sympy
expr = sympy.sympify("` + expr + `")
print(sympy.simplify(expr))`
	return runProcess(ctx, pythonTimeout, d.pythonPath, "-I", "-c", script)
}
