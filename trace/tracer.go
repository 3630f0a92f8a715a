// Package trace provides translation diagnostics for debugging the code
// generator: which constructs were left unsupported, and what the caches did.
package trace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Tracer reports translation events, optionally filtered by node kind
type Tracer struct {
	enabled bool
	filters []string
	writer  io.Writer
	mu      sync.Mutex
}

// Global tracer instance
var globalTracer *Tracer

// Init initializes the global tracer
func Init(enabled bool, filters []string, writer io.Writer) {
	if writer == nil {
		writer = os.Stderr
	}
	globalTracer = &Tracer{
		enabled: enabled,
		filters: filters,
		writer:  writer,
	}
}

// IsEnabled returns whether tracing is enabled
func IsEnabled() bool {
	if globalTracer == nil {
		return false
	}
	return globalTracer.enabled
}

// matchesFilter checks if a node kind matches any of the filter patterns
func (t *Tracer) matchesFilter(kind string) bool {
	if len(t.filters) == 0 {
		return true // No filters = trace everything
	}

	for _, pattern := range t.filters {
		if matched, _ := filepath.Match(pattern, kind); matched {
			return true
		}
	}
	return false
}

// Unsupported logs a construct the generator lowered to an inert placeholder
func (t *Tracer) Unsupported(kind string, detail string) {
	if !t.enabled || !t.matchesFilter(kind) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if detail != "" {
		fmt.Fprintf(t.writer, "[TRACE] UNSUPPORTED %s (%s)\n", kind, detail)
	} else {
		fmt.Fprintf(t.writer, "[TRACE] UNSUPPORTED %s\n", kind)
	}
}

// CacheAdd logs a new cache entry that will appear in the unit preamble
func (t *Tracer) CacheAdd(table, key, id string) {
	if !t.enabled || !t.matchesFilter(table) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] CACHE ADD %s[%q] => %s\n", table, key, id)
}

// CacheHit logs reuse of an interned literal or lookup accessor
func (t *Tracer) CacheHit(table, key, id string) {
	if !t.enabled || !t.matchesFilter(table) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] CACHE HIT %s[%q] => %s\n", table, key, id)
}

// Note logs a free-form translation event
func (t *Tracer) Note(kind string, format string, args ...interface{}) {
	if !t.enabled || !t.matchesFilter(kind) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.writer, "[TRACE] %s: %s\n", kind, fmt.Sprintf(format, args...))
}

// Global convenience functions

// Unsupported logs an unsupported construct using the global tracer
func Unsupported(kind string, detail string) {
	if globalTracer != nil {
		globalTracer.Unsupported(kind, detail)
	}
}

// CacheAdd logs a cache insertion using the global tracer
func CacheAdd(table, key, id string) {
	if globalTracer != nil {
		globalTracer.CacheAdd(table, key, id)
	}
}

// CacheHit logs a cache hit using the global tracer
func CacheHit(table, key, id string) {
	if globalTracer != nil {
		globalTracer.CacheHit(table, key, id)
	}
}

// Note logs a free-form event using the global tracer
func Note(kind string, format string, args ...interface{}) {
	if globalTracer != nil {
		globalTracer.Note(kind, format, args...)
	}
}
