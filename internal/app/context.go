package app

import (
	"fmt"
	"log"

	"tagboard/internal/assign"
	"tagboard/internal/catalog"
	"tagboard/internal/config"
	"tagboard/internal/engine"
	"tagboard/internal/ratings"
)

// Context is the immutable process-wide state: config, catalog, question
// schema, roster, and assignment map, all loaded once at startup and injected
// into every request-handling unit. There are no hidden globals; a restart is
// required to pick up file changes.
type Context struct {
	Config *config.Config
	Engine engine.Engine
	Roster map[string]struct{}
	Logger *log.Logger
}

// Build loads everything the process needs. Catalog and schema problems are
// fatal; assignment and roster problems are warnings and contribute nothing.
func Build(configPath string, logger *log.Logger) (*Context, error) {
	if logger == nil {
		logger = log.Default()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return BuildWith(cfg, logger)
}

// BuildWith assembles a Context from an already-validated config. Split out
// so tests can construct fixtures without a config file on disk.
func BuildWith(cfg *config.Config, logger *log.Logger) (*Context, error) {
	if logger == nil {
		logger = log.Default()
	}
	items, err := catalog.LoadItems(cfg.ItemsFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	questions, err := catalog.LoadQuestions(cfg.QuestionsFile)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	// Roster lookups only gate pseudonym entry.
	roster := map[string]struct{}{}
	if cfg.CoderMode == config.ModePseudonym {
		roster = assign.LoadRoster(cfg.CodersFile, logger)
	}

	assignments := assign.Resolver{
		AssignmentsFile: cfg.AssignmentsFile,
		CodersFile:      cfg.CodersFile,
		Logger:          logger,
	}.Build()

	store := &ratings.Store{Path: cfg.OutputCSV, Logger: logger}
	if err := store.EnsureDir(); err != nil {
		return nil, fmt.Errorf("prepare output directory: %w", err)
	}

	return &Context{
		Config: cfg,
		Engine: engine.New(cfg, items, questions, assignments, store),
		Roster: roster,
		Logger: logger,
	}, nil
}
