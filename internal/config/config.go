package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Media types a project can annotate.
const (
	MediaImage = "image"
	MediaText  = "text"
	MediaVideo = "video"
	MediaAudio = "audio"
)

// Coder identification modes.
const (
	ModeFreeEntry = "free_entry"
	ModePseudonym = "pseudonym"
)

// Config models config.yaml. It is loaded once at startup and treated as
// immutable afterwards.
type Config struct {
	ProjectName   string `yaml:"project_name"`
	MediaType     string `yaml:"media_type"`
	ItemsFile     string `yaml:"items_file"`
	QuestionsFile string `yaml:"questions_file"`

	BatchSize    int  `yaml:"batch_size"`
	ShuffleItems bool `yaml:"shuffle_items"`
	AllowRepeat  bool `yaml:"allow_repeat"`
	AllowSkip    bool `yaml:"allow_skip"`

	OutputCSV string `yaml:"output_csv"`

	PageHeaderHTML  string          `yaml:"page_header_html"`
	PageDescription PageDescription `yaml:"page_description"`

	CoderMode       string `yaml:"coder_mode"`
	CodersFile      string `yaml:"coders_file"`
	AssignmentsFile string `yaml:"assignments_file"`
}

// PageDescription configures the optional description block rendered above a
// batch. Template substitutes the literal {{value}} placeholder.
type PageDescription struct {
	Enabled  bool   `yaml:"enabled"`
	Column   string `yaml:"column"`
	Template string `yaml:"template_html"`
}

// Default returns a Config with the documented defaults applied.
func Default() *Config {
	return &Config{
		ProjectName:   "Annotation",
		MediaType:     MediaImage,
		ItemsFile:     "items.csv",
		QuestionsFile: "questions.json",
		BatchSize:     5,
		ShuffleItems:  true,
		AllowRepeat:   false,
		AllowSkip:     false,
		OutputCSV:     "ratings.csv",
		PageDescription: PageDescription{
			Enabled:  true,
			Column:   "description",
			Template: "<h3>{{value}}</h3>",
		},
		CoderMode:  ModeFreeEntry,
		CodersFile: "coders.csv",
	}
}

// Load reads and validates config from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Absent fields
// keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure. A config that fails
// validation is a fatal startup error; there is no degraded mode.
func (c *Config) Validate() error {
	switch c.MediaType {
	case MediaImage, MediaText, MediaVideo, MediaAudio:
	default:
		return fmt.Errorf("media_type must be one of image, text, video, audio (got %q)", c.MediaType)
	}
	switch c.CoderMode {
	case ModeFreeEntry, ModePseudonym:
	default:
		return fmt.Errorf("coder_mode must be pseudonym or free_entry (got %q)", c.CoderMode)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.ItemsFile == "" {
		return fmt.Errorf("items_file is required")
	}
	if c.QuestionsFile == "" {
		return fmt.Errorf("questions_file is required")
	}
	if c.OutputCSV == "" {
		return fmt.Errorf("output_csv is required")
	}
	return nil
}
