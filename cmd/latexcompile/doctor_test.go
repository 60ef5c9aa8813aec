package main

// Notes:
// - Tests black-box runDoctorCmd through its JSON and text output.
// - Tests that swap commandVersion or set environment variables cannot use
//   t.Parallel().

import (
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"runtime"
	"strings"
	"testing"
)

func fakeLookPath(found map[string]string) func(string) (string, error) {
	return func(file string) (string, error) {
		if p, ok := found[file]; ok {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
}

func swapCommandVersion(t *testing.T, fn func(context.Context, string) (string, error)) {
	t.Helper()
	orig := commandVersion
	commandVersion = fn
	t.Cleanup(func() { commandVersion = orig })
}

func runDoctorJSON(t *testing.T, env *Environment, args ...string) (*doctorResult, int) {
	t.Helper()
	code := runDoctorCmd(context.Background(), append([]string{"--json"}, args...), env)
	var result doctorResult
	if err := json.Unmarshal(env.Stdout.(interface{ Bytes() []byte }).Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	return &result, code
}

// ---------------------------------------------------------------------------
// TestRunDoctorCmd
// ---------------------------------------------------------------------------

func TestRunDoctorCmd_CompilerFound(t *testing.T) {
	swapCommandVersion(t, func(_ context.Context, path string) (string, error) {
		return "pdfTeX 3.141592653-2.6-1.40.26 (TeX Live 2024)", nil
	})
	t.Setenv("LATEXCOMPILE_TIMEOUT", "60s")

	env, _, _ := testEnv()
	env.LookPath = fakeLookPath(map[string]string{"pdflatex": "/usr/bin/pdflatex"})

	result, code := runDoctorJSON(t, env)
	if code != ExitSuccess {
		t.Errorf("exit code = %d, want %d", code, ExitSuccess)
	}
	if !result.Compiler.Found || result.Compiler.Path != "/usr/bin/pdflatex" {
		t.Errorf("Compiler = %+v", result.Compiler)
	}
	if !strings.Contains(result.Compiler.Version, "TeX Live") {
		t.Errorf("Version = %q", result.Compiler.Version)
	}
	if result.Env.OS != runtime.GOOS || result.Env.Arch != runtime.GOARCH {
		t.Errorf("Env = %+v", result.Env)
	}
	if !result.System.TempWritable {
		t.Error("TempWritable = false, want true")
	}
}

func TestRunDoctorCmd_CompilerMissing(t *testing.T) {
	swapCommandVersion(t, func(context.Context, string) (string, error) {
		t.Error("version must not run when the compiler is missing")
		return "", nil
	})

	env, _, _ := testEnv()
	env.LookPath = fakeLookPath(nil)

	result, code := runDoctorJSON(t, env, "--command", "xelatex")
	if code != ExitGeneral {
		t.Errorf("exit code = %d, want %d", code, ExitGeneral)
	}
	if result.Status != "errors" || result.Compiler.Command != "xelatex" || result.Compiler.Found {
		t.Errorf("result = %+v", result)
	}
	if len(result.Errors) == 0 || !strings.Contains(result.Errors[0], "xelatex not found") {
		t.Errorf("Errors = %q", result.Errors)
	}
}

func TestRunDoctorCmd_VersionFailureIsWarning(t *testing.T) {
	swapCommandVersion(t, func(context.Context, string) (string, error) {
		return "", errors.New("exit status 1")
	})
	t.Setenv("LATEXCOMPILE_TIMEOUT", "60s")

	env, _, _ := testEnv()
	env.LookPath = fakeLookPath(map[string]string{"pdflatex": "/bin/pdflatex"})

	result, code := runDoctorJSON(t, env)
	if code != ExitSuccess {
		t.Errorf("exit code = %d, want %d", code, ExitSuccess)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "version") {
		t.Errorf("Warnings = %q", result.Warnings)
	}
}

func TestRunDoctorCmd_CIWithoutTimeout(t *testing.T) {
	swapCommandVersion(t, func(context.Context, string) (string, error) { return "v", nil })
	t.Setenv("CI", "true")
	t.Setenv("LATEXCOMPILE_TIMEOUT", "")

	env, _, _ := testEnv()
	env.LookPath = fakeLookPath(map[string]string{"pdflatex": "/bin/pdflatex"})

	result, _ := runDoctorJSON(t, env)
	if !result.Env.CI {
		t.Error("CI = false, want true")
	}
	if result.Status != "warnings" {
		t.Errorf("Status = %q, want warnings", result.Status)
	}
}

func TestRunDoctorCmd_TextOutput(t *testing.T) {
	swapCommandVersion(t, func(context.Context, string) (string, error) { return "pdfTeX 3.14", nil })

	env, stdout, _ := testEnv()
	env.LookPath = fakeLookPath(map[string]string{"pdflatex": "/bin/pdflatex"})

	runDoctorCmd(context.Background(), nil, env)
	out := stdout.String()
	for _, want := range []string{"latexcompile doctor", "[OK] pdflatex found at /bin/pdflatex", "[OK] Version: pdfTeX 3.14", "Status:"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunDoctorCmd_BadFlag(t *testing.T) {
	t.Parallel()

	env, _, _ := testEnv()
	if code := runDoctorCmd(context.Background(), []string{"--nope"}, env); code != ExitUsage {
		t.Errorf("exit code = %d, want %d", code, ExitUsage)
	}
}

// ---------------------------------------------------------------------------
// TestIsContainer
// ---------------------------------------------------------------------------

func TestIsContainer_Override(t *testing.T) {
	t.Setenv("LATEXCOMPILE_CONTAINER", "1")

	got, hint := isContainer()
	if !got || hint != "LATEXCOMPILE_CONTAINER=1" {
		t.Errorf("isContainer() = %v, %q", got, hint)
	}
}
