package ratings

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return &Store{Path: filepath.Join(t.TempDir(), "out", "ratings.csv")}
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	s := newStore(t)
	if err := s.EnsureDir(); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	rows := []map[string]string{
		{"timestamp": "t1", "coder_id": "alice", "item_id": "1", "item_q1": "a"},
		{"timestamp": "t1", "coder_id": "alice", "item_id": "1", "item_q1": "b"},
	}
	if err := s.Append(rows); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append([]map[string]string{
		{"timestamp": "t2", "coder_id": "alice", "item_id": "2", "item_q1": "c"},
	}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 rows, got %d lines:\n%s", len(lines), data)
	}
	if lines[0] != "coder_id,item_id,item_q1,timestamp" {
		t.Fatalf("header not sorted union: %q", lines[0])
	}
	for _, line := range lines[1:] {
		if strings.Contains(line, "timestamp") {
			t.Fatalf("header rewritten mid-log: %q", line)
		}
	}
}

func TestCompletedItemIDs(t *testing.T) {
	s := newStore(t)
	if err := s.EnsureDir(); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	if got := s.CompletedItemIDs("alice"); len(got) != 0 {
		t.Fatalf("missing log should mean no completions: %v", got)
	}
	err := s.Append([]map[string]string{
		{"coder_id": "alice", "item_id": "1"},
		{"coder_id": "alice", "item_id": "1"},
		{"coder_id": "alice", "item_id": "2"},
		{"coder_id": "bob", "item_id": "3"},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	got := s.CompletedItemIDs("alice")
	if len(got) != 2 {
		t.Fatalf("alice completions: %v", got)
	}
	if _, ok := got["3"]; ok {
		t.Fatal("bob's item leaked into alice's progress")
	}
}

func TestUnreadableLogWarnsAndCountsAsEmpty(t *testing.T) {
	// A path through a regular file makes os.Stat fail with something
	// other than "not exist".
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	var buf bytes.Buffer
	s := &Store{
		Path:   filepath.Join(blocker, "ratings.csv"),
		Logger: log.New(&buf, "", 0),
	}
	if got := s.CompletedItemIDs("alice"); len(got) != 0 {
		t.Fatalf("unreadable log should mean no completions: %v", got)
	}
	if !strings.Contains(buf.String(), "WARN") {
		t.Fatalf("expected a warning, got log output %q", buf.String())
	}
	if _, err := s.Rows(); err == nil {
		t.Fatal("Rows should surface the stat failure")
	}
}

func TestCompletedItemIDsMissingColumns(t *testing.T) {
	s := newStore(t)
	if err := s.EnsureDir(); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	if err := os.WriteFile(s.Path, []byte("something,else\na,b\n"), 0o644); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	if got := s.CompletedItemIDs("alice"); len(got) != 0 {
		t.Fatalf("log without required columns should be uninformative: %v", got)
	}
}

func TestAppendHeterogeneousColumns(t *testing.T) {
	// A later append may carry a new column set; the reader keeps only the
	// columns each row actually has under the original header.
	s := newStore(t)
	if err := s.EnsureDir(); err != nil {
		t.Fatalf("ensure dir: %v", err)
	}
	if err := s.Append([]map[string]string{{"coder_id": "alice", "item_id": "1"}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append([]map[string]string{{"coder_id": "alice", "item_id": "2", "item_new": "x"}}); err != nil {
		t.Fatalf("append new column: %v", err)
	}
	got := s.CompletedItemIDs("alice")
	if len(got) != 2 {
		t.Fatalf("progress should still read both appends: %v", got)
	}
}
