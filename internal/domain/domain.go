package domain

import "encoding/json"

// Item is one catalog row. An item id may span several rows when an item has
// multiple sub-records; grouping is always by ItemID. Columns beyond the
// required ones are preserved in Extra so the presentation layer sees the
// full row.
type Item struct {
	ItemID      string            `json:"item_id"`
	Source      string            `json:"source"`
	Description string            `json:"description,omitempty"`
	DisplayText string            `json:"display_text,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Question is one entry of the question schema. Order within the schema is
// significant and drives both display and output-column order. Meta carries
// the full schema record, including rendering metadata this core does not
// interpret; it round-trips through JSON untouched.
type Question struct {
	ID        string
	AppliesTo string
	Meta      map[string]any
}

// MarshalJSON emits the full schema record so rendering metadata survives
// the trip to the presentation layer.
func (q Question) MarshalJSON() ([]byte, error) {
	if q.Meta != nil {
		return json.Marshal(q.Meta)
	}
	return json.Marshal(map[string]any{"id": q.ID, "applies_to": q.AppliesTo})
}

// UnmarshalJSON keeps the raw record and lifts out the two fields this core
// interprets.
func (q *Question) UnmarshalJSON(data []byte) error {
	meta := map[string]any{}
	if err := json.Unmarshal(data, &meta); err != nil {
		return err
	}
	q.Meta = meta
	if id, ok := meta["id"].(string); ok {
		q.ID = id
	}
	if scope, ok := meta["applies_to"].(string); ok {
		q.AppliesTo = scope
	}
	return nil
}

// Scopes a question can apply to.
const (
	ScopeItem = "item"
	ScopePage = "page"
)

// Batch is the data contract handed to the presentation layer for one
// annotation screen.
type Batch struct {
	ProjectName    string     `json:"project_name"`
	CoderID        string     `json:"coder_id"`
	MediaType      string     `json:"media_type"`
	ItemID         string     `json:"item_id"`
	Items          []Item     `json:"items"`
	PageHeaderHTML string     `json:"page_header_html,omitempty"`
	PageDescHTML   string     `json:"page_desc_html,omitempty"`
	Questions      []Question `json:"questions"`
	AllowSkip      bool       `json:"allow_skip"`
}

// SubmittedItem pairs one item row with its item-scoped answers.
type SubmittedItem struct {
	ItemRow map[string]any `json:"item_row"`
	Answers map[string]any `json:"answers"`
}

// Submission is the body of one submit call.
type Submission struct {
	Items       []SubmittedItem `json:"items"`
	PageAnswers map[string]any  `json:"page_answers"`
	Comments    string          `json:"comments"`
}
