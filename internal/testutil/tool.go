package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// FakeTool is a shell script standing in for an external executable.
type FakeTool struct {
	// Root is the install root (the value for the tool's environment variable).
	Root string

	// Path is the absolute path of the script.
	Path string

	// CallLog receives one line per invocation: the working directory
	// followed by the arguments.
	CallLog string
}

// WriteFakeTool writes an executable script at root/binary. Every invocation
// appends "<cwd> <args...>" to the call log, then runs body.
//
// Skips the test on Windows.
func WriteFakeTool(t *testing.T, binary, body string) *FakeTool {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}

	root := t.TempDir()
	tool := &FakeTool{
		Root:    root,
		Path:    filepath.Join(root, binary),
		CallLog: filepath.Join(root, "calls.log"),
	}

	if err := os.MkdirAll(filepath.Dir(tool.Path), 0o755); err != nil {
		t.Fatalf("create tool dir: %v", err)
	}

	script := "#!/bin/sh\n" +
		"echo \"$(pwd) $*\" >> " + strconv.Quote(tool.CallLog) + "\n" +
		body + "\n"
	if err := os.WriteFile(tool.Path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake tool: %v", err)
	}
	return tool
}

// Calls returns the recorded invocations, one per line.
func (f *FakeTool) Calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.CallLog)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("read call log: %v", err)
	}
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

// Env returns a lookup function that maps name to the tool root and reports
// every other variable as unset.
func (f *FakeTool) Env(name string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if key == name {
			return f.Root, true
		}
		return "", false
	}
}
