package extension

import (
	"testing"
	"time"
)

func TestContextGetDistinguishesAbsentFromNil(t *testing.T) {
	ctx := NewContext()
	if _, ok := ctx.Get("missing"); ok {
		t.Fatalf("expected absent key")
	}
	ctx.Set("present", nil)
	value, ok := ctx.Get("present")
	if !ok {
		t.Fatalf("expected stored nil to be present")
	}
	if value != nil {
		t.Fatalf("expected nil value, got %v", value)
	}
}

func TestContextSetOverwrites(t *testing.T) {
	ctx := NewContext()
	ctx.Set("key", 1)
	ctx.Set("key", "two")
	value, _ := ctx.Get("key")
	if value != "two" {
		t.Fatalf("expected overwrite, got %v", value)
	}
}

func TestContextRemove(t *testing.T) {
	ctx := NewContext()
	ctx.Set("key", 1)
	if !ctx.Remove("key") {
		t.Fatalf("expected remove to report existing key")
	}
	if ctx.Remove("key") {
		t.Fatalf("expected remove of absent key to report false")
	}
}

func TestContextClearPatterns(t *testing.T) {
	seed := func() *Context {
		ctx := NewContext()
		ctx.Set("foo.one", 1)
		ctx.Set("foo.two", 2)
		ctx.Set("bar.one", 3)
		ctx.Set("midpoint", 4)
		return ctx
	}

	tests := []struct {
		name      string
		pattern   string
		cleared   int
		remaining int
	}{
		{"all", "*", 4, 0},
		{"prefix", "foo*", 2, 2},
		{"suffix", "*one", 2, 2},
		{"contains", "*id*", 1, 3},
		{"exact hit", "bar.one", 1, 3},
		{"exact miss", "nope", 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := seed()
			if cleared := ctx.Clear(tt.pattern); cleared != tt.cleared {
				t.Fatalf("pattern %q: expected %d cleared, got %d", tt.pattern, tt.cleared, cleared)
			}
			if ctx.Len() != tt.remaining {
				t.Fatalf("pattern %q: expected %d remaining, got %d", tt.pattern, tt.remaining, ctx.Len())
			}
		})
	}
}

func TestContextClearAllThenGetAbsent(t *testing.T) {
	ctx := NewContext()
	ctx.Set("a", 1)
	ctx.Set("b", 2)
	ctx.Set("c", 3)
	if cleared := ctx.Clear("*"); cleared != 3 {
		t.Fatalf("expected 3 cleared, got %d", cleared)
	}
	for _, key := range []string{"a", "b", "c"} {
		if _, ok := ctx.Get(key); ok {
			t.Fatalf("expected %s to be absent after clear", key)
		}
	}
}

func TestSyncStepOutputsMerges(t *testing.T) {
	ctx := NewContext()
	ctx.SyncStepOutputs("build", map[string]string{"status": "ok"})
	ctx.SyncStepOutputs("build", map[string]string{"artifact": "a.tar"})

	if value, ok := ctx.StepOutput("build", "status"); !ok || value != "ok" {
		t.Fatalf("expected earlier output to survive merge, got %q ok=%v", value, ok)
	}
	if value, ok := ctx.StepOutput("build", "artifact"); !ok || value != "a.tar" {
		t.Fatalf("expected merged output, got %q ok=%v", value, ok)
	}
}

func TestSyncStepOutputsOverwritesSameName(t *testing.T) {
	ctx := NewContext()
	ctx.SyncStepOutputs("build", map[string]string{"status": "running"})
	ctx.SyncStepOutputs("build", map[string]string{"status": "ok"})
	if value, _ := ctx.StepOutput("build", "status"); value != "ok" {
		t.Fatalf("expected overwrite of same output name, got %q", value)
	}
}

func TestStepOutputAbsent(t *testing.T) {
	ctx := NewContext()
	if _, ok := ctx.StepOutput("build", "status"); ok {
		t.Fatalf("expected absent step output")
	}
	ctx.SyncStepOutputs("build", map[string]string{"status": "ok"})
	if _, ok := ctx.StepOutput("build", "other"); ok {
		t.Fatalf("expected absent output name")
	}
}

func TestExecutionInfo(t *testing.T) {
	ctx := NewContext()
	ctx.SetExecutionInfo("run-1", "job", "step")
	if ctx.RunID() != "run-1" || ctx.JobName() != "job" || ctx.StepName() != "step" {
		t.Fatalf("unexpected identity: %s/%s/%s", ctx.RunID(), ctx.JobName(), ctx.StepName())
	}
	ctx.SetExecutionInfo("run-2", "", "")
	if ctx.RunID() != "run-2" || ctx.JobName() != "" {
		t.Fatalf("expected wholesale overwrite")
	}
}

func TestVirtualClock(t *testing.T) {
	ctx := NewContext()
	if ctx.ClockMocked() {
		t.Fatalf("expected real clock by default")
	}

	ms := int64(1700000000000)
	ctx.SyncClock(&ClockState{VirtualTimeMs: &ms, Frozen: true})
	if !ctx.ClockMocked() {
		t.Fatalf("expected mocked clock")
	}
	if got := ctx.Now(); !got.Equal(time.UnixMilli(ms).UTC()) {
		t.Fatalf("expected virtual time, got %s", got)
	}

	// An override without a millisecond value is not a mocked clock.
	ctx.SyncClock(&ClockState{Frozen: true})
	if ctx.ClockMocked() {
		t.Fatalf("expected unmocked clock without virtual_time_ms")
	}

	ctx.SyncClock(nil)
	if ctx.ClockMocked() {
		t.Fatalf("expected wall clock after reset")
	}
}
