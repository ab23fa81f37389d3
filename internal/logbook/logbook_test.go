package logbook

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecordAndTail(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}

	book.Record("fn.call", 0, 1200*time.Microsecond)
	book.Record("ctx.get", -32000, 300*time.Microsecond)

	lines := book.Tail(10)
	if len(lines) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "INFO") || !strings.Contains(lines[0], "fn.call ok") {
		t.Fatalf("unexpected first entry: %s", lines[0])
	}
	if !strings.Contains(lines[1], "ERROR") || !strings.Contains(lines[1], "ctx.get error -32000") {
		t.Fatalf("unexpected second entry: %s", lines[1])
	}
}

func TestTailLimitsToMostRecent(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "journal.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	for i := 0; i < 5; i++ {
		book.Record("list_functions", 0, time.Millisecond)
	}
	book.Record("hook.call", 0, time.Millisecond)

	lines := book.Tail(1)
	if len(lines) != 1 || !strings.Contains(lines[0], "hook.call") {
		t.Fatalf("expected most recent entry, got %v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	book, err := New(filepath.Join(t.TempDir(), "never-written.log"))
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	if lines := book.Tail(5); lines != nil {
		t.Fatalf("expected nil for unwritten logbook, got %v", lines)
	}
}

func TestNilLogbookIsSafe(t *testing.T) {
	var book *Logbook
	book.Append(LevelInfo, "ignored")
	if book.Tail(3) != nil {
		t.Fatalf("expected nil tail from nil logbook")
	}
	if book.Path() != "" {
		t.Fatalf("expected empty path from nil logbook")
	}
}
