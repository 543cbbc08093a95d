package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToSaveDir(t *testing.T) {
	dir := t.TempDir()
	logger := New("agent-3", dir)
	logger.Print("hello")

	path := filepath.Join(dir, "agent-3.log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file missing message, got %q", data)
	}
	if !strings.Contains(string(data), "[agent-3]") {
		t.Fatalf("log file missing prefix, got %q", data)
	}
}

func TestNewWithoutSaveDirStillWorks(t *testing.T) {
	logger := New("directory", "")
	if logger == nil {
		t.Fatalf("New returned nil logger")
	}
}
