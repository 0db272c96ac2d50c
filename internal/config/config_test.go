package config

import (
	"strings"
	"testing"
)

func TestDefaultsApplied(t *testing.T) {
	cfg, err := FromYAML([]byte("project_name: Demo\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ProjectName != "Demo" {
		t.Fatalf("project name: %q", cfg.ProjectName)
	}
	if cfg.MediaType != MediaImage {
		t.Fatalf("default media type: %q", cfg.MediaType)
	}
	if cfg.BatchSize != 5 {
		t.Fatalf("default batch size: %d", cfg.BatchSize)
	}
	if !cfg.ShuffleItems {
		t.Fatal("shuffle should default on")
	}
	if cfg.AllowRepeat || cfg.AllowSkip {
		t.Fatal("repeat/skip should default off")
	}
	if cfg.CoderMode != ModeFreeEntry {
		t.Fatalf("default coder mode: %q", cfg.CoderMode)
	}
	if cfg.OutputCSV != "ratings.csv" {
		t.Fatalf("default output: %q", cfg.OutputCSV)
	}
	pd := cfg.PageDescription
	if !pd.Enabled || pd.Column != "description" || pd.Template != "<h3>{{value}}</h3>" {
		t.Fatalf("page description defaults: %+v", pd)
	}
}

func TestFullConfig(t *testing.T) {
	raw := `
project_name: Poems
media_type: text
items_file: data/items.csv
questions_file: data/questions.json
batch_size: 3
shuffle_items: false
allow_repeat: true
allow_skip: true
output_csv: out/ratings.csv
coder_mode: pseudonym
coders_file: data/coders.csv
assignments_file: data/assignments.csv
page_description:
  enabled: false
  column: title
`
	cfg, err := FromYAML([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MediaType != MediaText || cfg.BatchSize != 3 || cfg.ShuffleItems {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.AllowRepeat || !cfg.AllowSkip {
		t.Fatalf("flags not read: %+v", cfg)
	}
	if cfg.CoderMode != ModePseudonym || cfg.AssignmentsFile != "data/assignments.csv" {
		t.Fatalf("coder settings: %+v", cfg)
	}
	if cfg.PageDescription.Enabled || cfg.PageDescription.Column != "title" {
		t.Fatalf("page description: %+v", cfg.PageDescription)
	}
}

func TestInvalidConfigRejected(t *testing.T) {
	cases := map[string]string{
		"bad media":  "media_type: hologram\n",
		"bad mode":   "coder_mode: anonymous\n",
		"zero batch": "batch_size: 0\n",
		"bad yaml":   "batch_size: [not a number\n",
	}
	for name, raw := range cases {
		if _, err := FromYAML([]byte(raw)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("no-such-config.yaml")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
