package assign

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func idSet(ids ...string) map[string]struct{} {
	s := map[string]struct{}{}
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestSplitIDsField(t *testing.T) {
	got := SplitIDsField("a, b;c")
	if !reflect.DeepEqual(got, idSet("a", "b", "c")) {
		t.Fatalf("split: %v", got)
	}
	if len(SplitIDsField("  ")) != 0 {
		t.Fatal("blank field should be empty set")
	}
	if !reflect.DeepEqual(SplitIDsField(";;1,,2;"), idSet("1", "2")) {
		t.Fatal("empty fragments should be dropped")
	}
}

func TestBuildFromAssignmentsFile(t *testing.T) {
	dir := t.TempDir()
	assignFile := writeFile(t, dir, "assignments.csv", "coder_id,item_ids\nalice,\"1,2\"\nbob,3;4\n")
	m := Resolver{AssignmentsFile: assignFile}.Build()
	if !reflect.DeepEqual(m["alice"], idSet("1", "2")) {
		t.Fatalf("alice: %v", m["alice"])
	}
	if !reflect.DeepEqual(m["bob"], idSet("3", "4")) {
		t.Fatalf("bob: %v", m["bob"])
	}
}

func TestBuildMergesRosterByUnion(t *testing.T) {
	dir := t.TempDir()
	assignFile := writeFile(t, dir, "assignments.csv", "coder_id,item_ids\nalice,\"1,2\"\n")
	rosterFile := writeFile(t, dir, "coders.csv", "coder_id,item_ids\nalice,\"2,3\"\nbob,9\n")
	m := Resolver{AssignmentsFile: assignFile, CodersFile: rosterFile}.Build()
	if !reflect.DeepEqual(m["alice"], idSet("1", "2", "3")) {
		t.Fatalf("alice union: %v", m["alice"])
	}
	if !reflect.DeepEqual(m["bob"], idSet("9")) {
		t.Fatalf("bob: %v", m["bob"])
	}
}

func TestBuildRosterWithoutItemIDsColumn(t *testing.T) {
	dir := t.TempDir()
	rosterFile := writeFile(t, dir, "coders.csv", "coder_id\nalice\n")
	m := Resolver{CodersFile: rosterFile}.Build()
	if len(m) != 0 {
		t.Fatalf("roster without item_ids should contribute nothing: %v", m)
	}
}

func TestBuildMissingSources(t *testing.T) {
	m := Resolver{AssignmentsFile: "nope.csv", CodersFile: "also-nope.csv"}.Build()
	if len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}

func TestAllowedForUnrestricted(t *testing.T) {
	m := Map{"alice": idSet("1")}
	if m.AllowedFor("bob") != nil {
		t.Fatal("unknown coder should be unrestricted")
	}
	m["carol"] = idSet()
	if m.AllowedFor("carol") != nil {
		t.Fatal("empty set should mean unrestricted")
	}
	if m.AllowedFor("alice") == nil {
		t.Fatal("alice should be restricted")
	}
}

func TestLoadRoster(t *testing.T) {
	dir := t.TempDir()
	rosterFile := writeFile(t, dir, "coders.csv", "coder_id,name\nalice,Alice\nbob,Bob\n")
	roster := LoadRoster(rosterFile, nil)
	if !reflect.DeepEqual(roster, idSet("alice", "bob")) {
		t.Fatalf("roster: %v", roster)
	}
	if len(LoadRoster(filepath.Join(dir, "missing.csv"), nil)) != 0 {
		t.Fatal("missing roster should be empty")
	}
}
