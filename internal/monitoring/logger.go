// Package monitoring routes diagnostic output from library packages.
package monitoring

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Logf is the package-level diagnostic logger used by the clustering,
// dataset and storage packages. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger and returns the previous one so
// callers can restore it. Passing nil mutes diagnostics.
func SetLogger(f func(format string, v ...interface{})) func(format string, v ...interface{}) {
	prev := Logf
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return prev
	}
	Logf = f
	return prev
}

// Recorder collects formatted log lines, for tests that assert on
// diagnostics.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf formats and stores one line.
func (r *Recorder) Logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Contains reports whether any recorded line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}
