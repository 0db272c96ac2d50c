package catalog

import (
	"errors"
	"os"
	"path/filepath"
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

func TestLoadItems(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "item_id,source,description,rating\n1,a.png,first,7\n1,b.png,,3\n2,c.png,second,\n")
	items, err := LoadItems(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(items))
	}
	if items[0].ItemID != "1" || items[0].Source != "a.png" || items[0].Description != "first" {
		t.Fatalf("row 0: %+v", items[0])
	}
	if items[0].Extra["rating"] != "7" {
		t.Fatalf("extra column lost: %+v", items[0].Extra)
	}
	if items[2].ItemID != "2" {
		t.Fatalf("row order not preserved: %+v", items[2])
	}
}

func TestLoadItemsLegacyPromptColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "item_id,source,prompt\nx,src,describe this\n")
	items, err := LoadItems(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if items[0].Description != "describe this" {
		t.Fatalf("prompt not normalized to description: %+v", items[0])
	}
	if _, ok := items[0].Extra["prompt"]; ok {
		t.Fatal("prompt should not survive as an extra column")
	}
}

func TestLoadItemsMissingRequiredColumns(t *testing.T) {
	dir := t.TempDir()
	noID := writeFile(t, dir, "noid.csv", "source,description\na,b\n")
	if _, err := LoadItems(noID); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn without item_id, got %v", err)
	}
	noSource := writeFile(t, dir, "nosource.csv", "item_id,description\n1,b\n")
	if _, err := LoadItems(noSource); !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn without source, got %v", err)
	}
}

func TestLoadQuestions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "questions.json", `[
  {"id": "quality", "applies_to": "item", "label": "Quality?", "type": "likert"},
  {"id": "overall", "applies_to": "page"}
]`)
	questions, err := LoadQuestions(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
	if questions[0].ID != "quality" || questions[0].AppliesTo != "item" {
		t.Fatalf("question 0: %+v", questions[0])
	}
	if questions[1].AppliesTo != "page" {
		t.Fatalf("question 1: %+v", questions[1])
	}
	if questions[0].Meta["label"] != "Quality?" {
		t.Fatalf("rendering metadata lost: %+v", questions[0].Meta)
	}
}

func TestLoadQuestionsMissingID(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "questions.json", `[{"applies_to": "item"}]`)
	if _, err := LoadQuestions(path); err == nil {
		t.Fatal("expected error for question without id")
	}
}
