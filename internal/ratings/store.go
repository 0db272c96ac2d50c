package ratings

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Store is the append-only output log. The CSV file is the source of truth
// for coder progress; no separate progress state is persisted. Appends are
// serialized within the process, but concurrent appends from other processes
// are not coordinated.
type Store struct {
	Path   string
	Logger *log.Logger

	mu sync.Mutex
}

func (s *Store) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

// EnsureDir creates the log's parent directory if missing. Called once at
// startup.
func (s *Store) EnsureDir() error {
	parent := filepath.Dir(s.Path)
	if parent == "" || parent == "." {
		return nil
	}
	return os.MkdirAll(parent, 0o755)
}

// Append writes one row per map to the log. The header is the sorted union
// of keys across the rows of this call and is written only when the log is
// new or empty; later appends never reconcile it, so the column set may vary
// across appends if the schema changes between deployments.
func (s *Store) Append(rows []map[string]string) error {
	if len(rows) == 0 {
		return nil
	}
	keys := map[string]struct{}{}
	for _, row := range rows {
		for k := range row {
			keys[k] = struct{}{}
		}
	}
	fieldnames := make([]string, 0, len(keys))
	for k := range keys {
		fieldnames = append(fieldnames, k)
	}
	sort.Strings(fieldnames)

	s.mu.Lock()
	defer s.mu.Unlock()

	newFile := true
	if info, err := os.Stat(s.Path); err == nil && info.Size() > 0 {
		newFile = false
	}
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(fieldnames); err != nil {
			return fmt.Errorf("write output header: %w", err)
		}
	}
	for _, row := range rows {
		rec := make([]string, len(fieldnames))
		for i, name := range fieldnames {
			rec[i] = row[name]
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write output row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output log: %w", err)
	}
	return nil
}

// CompletedItemIDs returns the distinct item ids the coder has already
// submitted. An absent or unreadable log, or one without coder_id and
// item_id columns, counts as no completions; re-showing done items is
// preferred over blocking the coder.
func (s *Store) CompletedItemIDs(coderID string) map[string]struct{} {
	done := map[string]struct{}{}
	header, rows, err := s.read()
	if err != nil {
		s.logger().Printf("WARN: could not read output log for progress: %v", err)
		return done
	}
	if !contains(header, "coder_id") || !contains(header, "item_id") {
		return done
	}
	for _, row := range rows {
		if row["coder_id"] == coderID {
			done[row["item_id"]] = struct{}{}
		}
	}
	return done
}

// Rows reads the whole log into one map per row keyed by header name. Rows
// written by an append with a different column set keep only the columns
// they actually carry.
func (s *Store) Rows() ([]map[string]string, error) {
	_, rows, err := s.read()
	return rows, err
}

func (s *Store) read() ([]string, []map[string]string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	if info.Size() == 0 {
		return nil, nil, nil
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := map[string]string{}
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}
