package engine

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"tagboard/internal/assign"
	"tagboard/internal/config"
	"tagboard/internal/domain"
	"tagboard/internal/ratings"
)

// Engine orchestrates batch selection and submission over the long-lived
// read-only state loaded at startup. Now and Rand are injectable for tests;
// when Rand is nil the shuffle uses the locked top-level rand functions,
// which are safe under concurrent requests.
type Engine struct {
	Config      *config.Config
	Items       []domain.Item
	Questions   []domain.Question
	Assignments assign.Map
	Store       *ratings.Store
	Now         func() time.Time
	Rand        *rand.Rand
}

func New(cfg *config.Config, items []domain.Item, questions []domain.Question, assignments assign.Map, store *ratings.Store) Engine {
	return Engine{
		Config:      cfg,
		Items:       items,
		Questions:   questions,
		Assignments: assignments,
		Store:       store,
		Now:         time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// SelectNextGroup picks the next item group for a coder: restrict to the
// coder's assignment set if any, drop already-completed items unless repeats
// are allowed, shuffle if configured, and return the first group encountered.
// An empty item id with a nil group means no work remains; it is not an
// error.
func (e Engine) SelectNextGroup(coderID string) (string, []domain.Item) {
	allowed := e.Assignments.AllowedFor(coderID)

	work := make([]domain.Item, 0, len(e.Items))
	for _, it := range e.Items {
		if allowed != nil {
			if _, ok := allowed[it.ItemID]; !ok {
				continue
			}
		}
		work = append(work, it)
	}

	if !e.Config.AllowRepeat {
		completed := e.Store.CompletedItemIDs(coderID)
		if len(completed) > 0 {
			kept := work[:0]
			for _, it := range work {
				if _, done := completed[it.ItemID]; !done {
					kept = append(kept, it)
				}
			}
			work = kept
		}
	}

	if len(work) == 0 {
		return "", nil
	}

	if e.Config.ShuffleItems {
		swap := func(i, j int) { work[i], work[j] = work[j], work[i] }
		if e.Rand != nil {
			e.Rand.Shuffle(len(work), swap)
		} else {
			rand.Shuffle(len(work), swap)
		}
	}

	itemID := work[0].ItemID
	var group []domain.Item
	for _, it := range work {
		if it.ItemID == itemID {
			group = append(group, it)
		}
	}
	return itemID, group
}

// BuildBatch assembles the data contract for one annotation screen, or nil
// when the coder has no work left. batchSize caps the number of rows within
// the chosen item's group; a negative value means no cap.
func (e Engine) BuildBatch(coderID string, batchSize int) *domain.Batch {
	itemID, group := e.SelectNextGroup(coderID)
	if group == nil {
		return nil
	}
	if batchSize >= 0 && len(group) > batchSize {
		group = group[:batchSize]
	}

	if e.Config.MediaType == config.MediaText {
		for i := range group {
			group[i].DisplayText = ReadTextSource(group[i].Source)
		}
	}

	return &domain.Batch{
		ProjectName:    e.Config.ProjectName,
		CoderID:        coderID,
		MediaType:      e.Config.MediaType,
		ItemID:         itemID,
		Items:          group,
		PageHeaderHTML: e.Config.PageHeaderHTML,
		PageDescHTML:   e.pageDescHTML(group),
		Questions:      e.Questions,
		AllowSkip:      e.Config.AllowSkip,
	}
}

// pageDescHTML substitutes the first non-empty value of the configured
// description column into the {{value}} template placeholder.
func (e Engine) pageDescHTML(group []domain.Item) string {
	pd := e.Config.PageDescription
	if !pd.Enabled || pd.Column == "" {
		return ""
	}
	for _, it := range group {
		value := strings.TrimSpace(itemColumn(it, pd.Column))
		if value != "" {
			return strings.ReplaceAll(pd.Template, "{{value}}", value)
		}
	}
	return ""
}

func itemColumn(it domain.Item, col string) string {
	switch col {
	case "item_id":
		return it.ItemID
	case "source":
		return it.Source
	case "description":
		return it.Description
	default:
		return it.Extra[col]
	}
}

// ReadTextSource resolves a text item's source: a path to an existing file
// yields the file's contents, anything else is treated as inline text.
func ReadTextSource(src string) string {
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return src
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Sprintf("[Error reading file: %s]", src)
	}
	return string(data)
}

// Submit flattens a submission into one output row per item and appends them
// to the output log. It returns a submission id for request logging; the id
// is not a log column.
func (e Engine) Submit(coderID string, sub domain.Submission) (string, error) {
	rows := e.Flatten(coderID, sub)
	if err := e.Store.Append(rows); err != nil {
		return "", err
	}
	return uuid.NewString(), nil
}

// Flatten is a pure function from (schema, submission) to output rows. Each
// row carries the base record, one item_<qid> column per item-scoped
// question, one page_<qid> column per page-scoped question (identical across
// the submission's rows), and the comments verbatim.
func (e Engine) Flatten(coderID string, sub domain.Submission) []map[string]string {
	timestamp := e.now().UTC().Format(time.RFC3339)
	comments := strings.TrimSpace(sub.Comments)

	rows := make([]map[string]string, 0, len(sub.Items))
	for _, it := range sub.Items {
		row := map[string]string{
			"timestamp":   timestamp,
			"coder_id":    coderID,
			"media_type":  e.Config.MediaType,
			"item_id":     stringValue(it.ItemRow["item_id"]),
			"source":      stringValue(it.ItemRow["source"]),
			"description": stringValue(it.ItemRow["description"]),
		}
		for _, q := range e.Questions {
			if q.AppliesTo == domain.ScopeItem {
				row["item_"+q.ID] = answerValue(it.Answers[q.ID])
			}
		}
		for _, q := range e.Questions {
			if q.AppliesTo == domain.ScopePage {
				row["page_"+q.ID] = answerValue(sub.PageAnswers[q.ID])
			}
		}
		row["comments"] = comments
		rows = append(rows, row)
	}
	return rows
}

// Progress summarizes a coder's completion state, derived on demand from the
// output log.
type Progress struct {
	CoderID   string `json:"coder_id"`
	Assigned  int    `json:"assigned"`
	Completed int    `json:"completed"`
	Remaining int    `json:"remaining"`
}

// CoderProgress counts the coder's eligible distinct items against the ids
// already present in the output log.
func (e Engine) CoderProgress(coderID string) Progress {
	allowed := e.Assignments.AllowedFor(coderID)
	eligible := map[string]struct{}{}
	for _, it := range e.Items {
		if allowed != nil {
			if _, ok := allowed[it.ItemID]; !ok {
				continue
			}
		}
		eligible[it.ItemID] = struct{}{}
	}
	completed := e.Store.CompletedItemIDs(coderID)
	remaining := 0
	for id := range eligible {
		if _, done := completed[id]; !done {
			remaining++
		}
	}
	return Progress{
		CoderID:   coderID,
		Assigned:  len(eligible),
		Completed: len(completed),
		Remaining: remaining,
	}
}

// answerValue serializes one answer; multi-valued answers join with ",".
func answerValue(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = stringValue(item)
		}
		return strings.Join(parts, ",")
	}
	return stringValue(v)
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
