// Package logging gives every participant a *log.Logger the way the
// teacher's sdfs.go and failure-detector/fd.go do (myLog = log.New(...)),
// generalized so a process hosting several agents/streamers/directories
// gets one distinctly-prefixed logger per participant instead of one
// global.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// New builds a logger prefixed with name (e.g. "agent[3]", "directory"),
// writing to stderr and, if saveDir is non-empty, additionally appending
// to "<saveDir>/<name>.log".
func New(name string, saveDir string) *log.Logger {
	out := io.Writer(os.Stderr)
	if saveDir != "" {
		if err := os.MkdirAll(saveDir, 0o755); err == nil {
			path := filepath.Join(saveDir, fmt.Sprintf("%s.log", name))
			if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
				out = io.MultiWriter(os.Stderr, f)
			}
		}
	}
	return log.New(out, fmt.Sprintf("[%s] ", name), log.LstdFlags|log.Lmicroseconds)
}
