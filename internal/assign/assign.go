package assign

import (
	"encoding/csv"
	"log"
	"os"
	"strings"
)

// Map restricts which items each coder may be shown. A coder absent from the
// map, or mapped to an empty set, is unrestricted.
type Map map[string]map[string]struct{}

// AllowedFor returns the restriction set for a coder, or nil when the coder
// is unrestricted.
func (m Map) AllowedFor(coderID string) map[string]struct{} {
	ids := m[strings.TrimSpace(coderID)]
	if len(ids) == 0 {
		return nil
	}
	return ids
}

// Resolver builds the coder -> item restriction map from the optional
// assignments file and the optional item_ids column of the coder roster.
type Resolver struct {
	AssignmentsFile string
	CodersFile      string
	Logger          *log.Logger
}

func (r Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// Build merges both sources. The dedicated assignments file sets each coder's
// entry outright; the roster column then unions into whatever is there. A
// source that cannot be read contributes nothing; Build never fails.
func (r Resolver) Build() Map {
	mapping := Map{}

	if r.AssignmentsFile != "" {
		if exists(r.AssignmentsFile) {
			rows, err := readTable(r.AssignmentsFile)
			if err != nil {
				r.logger().Printf("WARN: failed to read assignments_file %q: %v", r.AssignmentsFile, err)
			} else {
				for _, row := range rows {
					coder := strings.TrimSpace(row["coder_id"])
					ids, hasIDs := row["item_ids"]
					if coder == "" || !hasIDs {
						continue
					}
					mapping[coder] = SplitIDsField(ids)
				}
			}
		}
	}

	if exists(r.CodersFile) {
		rows, err := readTable(r.CodersFile)
		if err != nil {
			r.logger().Printf("WARN: failed to read coders_file %q for assignments: %v", r.CodersFile, err)
			return mapping
		}
		for _, row := range rows {
			coder := strings.TrimSpace(row["coder_id"])
			ids := SplitIDsField(row["item_ids"])
			if coder == "" || len(ids) == 0 {
				continue
			}
			existing, ok := mapping[coder]
			if !ok {
				existing = map[string]struct{}{}
				mapping[coder] = existing
			}
			for id := range ids {
				existing[id] = struct{}{}
			}
		}
	}

	return mapping
}

// LoadRoster returns the set of known coder ids from the roster file, or an
// empty set if the file is missing or has no coder_id column. Used only in
// pseudonym mode.
func LoadRoster(path string, logger *log.Logger) map[string]struct{} {
	if logger == nil {
		logger = log.Default()
	}
	roster := map[string]struct{}{}
	if !exists(path) {
		return roster
	}
	rows, err := readTable(path)
	if err != nil {
		logger.Printf("WARN: failed to read coders_file %q: %v", path, err)
		return roster
	}
	for _, row := range rows {
		if id := strings.TrimSpace(row["coder_id"]); id != "" {
			roster[id] = struct{}{}
		}
	}
	return roster
}

// SplitIDsField splits an item_ids field into a set of ids. Semicolons are
// accepted as separators alongside commas; whitespace is trimmed and empty
// fragments dropped.
func SplitIDsField(s string) map[string]struct{} {
	ids := map[string]struct{}{}
	if strings.TrimSpace(s) == "" {
		return ids
	}
	s = strings.ReplaceAll(s, ";", ",")
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			ids[part] = struct{}{}
		}
	}
	return ids
}

// readTable reads a CSV file into one map per row keyed by header name.
// A row key is present only when the file has that column.
func readTable(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
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
	return rows, nil
}

func exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
