package server

import (
	"tagboard/internal/domain"
	"tagboard/internal/engine"
)

// SubmitRequest is the body of POST /submit.
type SubmitRequest struct {
	Items       []domain.SubmittedItem `json:"items"`
	PageAnswers map[string]any         `json:"page_answers,omitempty" jsonschema:"type=object,additionalProperties=true"`
	Comments    string                 `json:"comments,omitempty"`
}

// SubmitResponse acknowledges a logged submission.
type SubmitResponse struct {
	Status string `json:"status" example:"success"`
}

// BatchResponse wraps the batch data contract; Done marks the terminal
// no-more-items state.
type BatchResponse struct {
	Done  bool          `json:"done"`
	Batch *domain.Batch `json:"batch,omitempty"`
}

// ProgressResponse reports completion counts for the session coder.
type ProgressResponse struct {
	Progress engine.Progress `json:"progress"`
}

func submission(req SubmitRequest) domain.Submission {
	return domain.Submission{
		Items:       req.Items,
		PageAnswers: req.PageAnswers,
		Comments:    req.Comments,
	}
}
