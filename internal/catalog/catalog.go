package catalog

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"tagboard/internal/domain"
)

// ErrMissingColumn reports an items file without one of the required
// item_id and source columns.
var ErrMissingColumn = errors.New("missing required column")

// LoadItems reads the item catalog from a CSV file. The catalog must carry at
// least item_id and source columns; a legacy prompt column is treated as
// description when description is absent. Item ids are strings regardless of
// how they look in the file. Row order is preserved.
func LoadItems(path string) ([]domain.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open items file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read items file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("items file %s is empty", path)
	}

	header := records[0]
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	if _, ok := col["description"]; !ok {
		if i, ok := col["prompt"]; ok {
			header[i] = "description"
			col["description"] = i
			delete(col, "prompt")
		}
	}
	if _, ok := col["item_id"]; !ok {
		return nil, fmt.Errorf("items file %s: %w: item_id", path, ErrMissingColumn)
	}
	if _, ok := col["source"]; !ok {
		return nil, fmt.Errorf("items file %s: %w: source", path, ErrMissingColumn)
	}

	items := make([]domain.Item, 0, len(records)-1)
	for _, rec := range records[1:] {
		field := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		}
		it := domain.Item{
			ItemID:      field("item_id"),
			Source:      field("source"),
			Description: field("description"),
		}
		for name, i := range col {
			if name == "item_id" || name == "source" || name == "description" {
				continue
			}
			if i >= len(rec) {
				continue
			}
			if it.Extra == nil {
				it.Extra = map[string]string{}
			}
			it.Extra[name] = rec[i]
		}
		items = append(items, it)
	}
	return items, nil
}

// LoadQuestions reads the question schema from a JSON file. Order is
// preserved and significant.
func LoadQuestions(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open questions file: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions file %s: %w", path, err)
	}
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("questions file %s: entry %d has no id", path, i)
		}
	}
	return questions, nil
}
