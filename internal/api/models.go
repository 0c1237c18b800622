package api

// MaskTaskRequest is the admission payload for a masking task.
type MaskTaskRequest struct {
	Text         string            `json:"text"                   validate:"required"`
	Strategy     string            `json:"strategy"               validate:"required"`
	Schema       []string          `json:"schema,omitempty"`
	ForceConvert map[string]string `json:"force_convert,omitempty"`
	Handle       string            `json:"handle,omitempty"       validate:"omitempty,url"`
}

// EmbeddingTaskRequest is the admission payload for an embedding task.
type EmbeddingTaskRequest struct {
	Text   string `json:"text"             validate:"required"`
	Handle string `json:"handle,omitempty" validate:"omitempty,url"`
}

// RerankTaskRequest is the admission payload for a rerank task.
type RerankTaskRequest struct {
	Query  string   `json:"query"            validate:"required"`
	Texts  []string `json:"texts"            validate:"required"`
	TopK   int      `json:"top_k,omitempty"  validate:"omitempty,min=1"`
	Handle string   `json:"handle,omitempty" validate:"omitempty,url"`
}

// SubmitResponse acknowledges an admitted task.
type SubmitResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// OCRResponse carries the recognized text of one image.
type OCRResponse struct {
	Text string `json:"text"`
}
