package extension

import (
	"strings"
	"sync"
	"time"
)

// ClockState mirrors the orchestrator's virtual clock override. When
// VirtualTimeMs is set, Context.Now reports the virtual time instead of the
// wall clock so time-dependent callables stay deterministic under test.
type ClockState struct {
	VirtualTimeMs  *int64  `json:"virtual_time_ms"`
	VirtualTimeISO *string `json:"virtual_time_iso"`
	Frozen         bool    `json:"frozen"`
}

// Context is the mutable state shared by every dispatched call for the
// lifetime of the bridge process: a string-keyed value store, per-step
// output maps, run identity, and the optional clock override.
//
// The serve loop is single-threaded, but all access goes through a mutex so
// the atomicity contract survives if concurrent dispatch is ever added.
type Context struct {
	mu       sync.RWMutex
	values   map[string]any
	steps    map[string]map[string]string
	runID    string
	jobName  string
	stepName string
	clock    *ClockState
}

// NewContext returns an empty execution context.
func NewContext() *Context {
	return &Context{
		values: map[string]any{},
		steps:  map[string]map[string]string{},
	}
}

// Get returns the stored value for key. The second return distinguishes an
// absent key from a stored nil.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[key]
	return value, ok
}

// Set stores value under key, overwriting unconditionally.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Remove deletes key and reports whether it existed.
func (c *Context) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; !ok {
		return false
	}
	delete(c.values, key)
	return true
}

// Clear deletes every key matched by pattern and returns the count removed.
// Pattern semantics: "*" matches everything, "*s*" contains, "*s" suffix,
// "s*" prefix, anything else is an exact key. Zero matches is not an error.
func (c *Context) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var matched []string
	for key := range c.values {
		if matchPattern(pattern, key) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		delete(c.values, key)
	}
	return len(matched)
}

// Len reports how many keys are currently stored.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// SyncStepOutputs merges outputs into the named step's output map. Existing
// output names for the step are overwritten; names absent from outputs are
// kept, so a later sync never loses earlier keys.
func (c *Context) SyncStepOutputs(stepID string, outputs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	step, ok := c.steps[stepID]
	if !ok {
		step = make(map[string]string, len(outputs))
		c.steps[stepID] = step
	}
	for name, value := range outputs {
		step[name] = value
	}
}

// StepOutput returns a previously synced output value for a step.
func (c *Context) StepOutput(stepID, name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	step, ok := c.steps[stepID]
	if !ok {
		return "", false
	}
	value, ok := step[name]
	return value, ok
}

// SetExecutionInfo overwrites the run identity visible to user callables.
func (c *Context) SetExecutionInfo(runID, jobName, stepName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runID = runID
	c.jobName = jobName
	c.stepName = stepName
}

// RunID returns the current run identifier.
func (c *Context) RunID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.runID
}

// JobName returns the current job name.
func (c *Context) JobName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jobName
}

// StepName returns the current step name.
func (c *Context) StepName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stepName
}

// SyncClock replaces the clock override wholesale. A nil state restores the
// wall clock.
func (c *Context) SyncClock(state *ClockState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = state
}

// Now returns the virtual time when a clock override with VirtualTimeMs is
// active, otherwise the real current time.
func (c *Context) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.clock != nil && c.clock.VirtualTimeMs != nil {
		return time.UnixMilli(*c.clock.VirtualTimeMs).UTC()
	}
	return time.Now()
}

// ClockMocked reports whether a virtual clock override is active.
func (c *Context) ClockMocked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clock != nil && c.clock.VirtualTimeMs != nil
}

func matchPattern(pattern, key string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*"):
		return strings.Contains(key, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(key, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(key, pattern[:len(pattern)-1])
	default:
		return pattern == key
	}
}
