package models

// DocumentInput is the input for indexing a manuscript passage or document.
// The content body is the indexed text; the title is kept as metadata.
type DocumentInput struct {
	ID           string                 `json:"id,omitempty"`
	Title        string                 `json:"title,omitempty"`
	Content      string                 `json:"content"`
	DocumentType string                 `json:"document_type,omitempty"`
	ProjectID    string                 `json:"project_id,omitempty"`
	Source       string                 `json:"source,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// CharacterInput is the input for indexing a character sheet. The indexed text
// is the concatenation of the descriptive fields; absent fields are omitted.
type CharacterInput struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Backstory   string                 `json:"backstory,omitempty"`
	Traits      []string               `json:"traits,omitempty"`
	Role        string                 `json:"role,omitempty"`
	Notes       string                 `json:"notes,omitempty"`
	ProjectID   string                 `json:"project_id,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// ThemeInput is the input for indexing a story theme or motif.
type ThemeInput struct {
	ID          string                 `json:"id,omitempty"`
	Theme       string                 `json:"theme"`
	Description string                 `json:"description,omitempty"`
	Examples    []string               `json:"examples,omitempty"`
	ProjectID   string                 `json:"project_id,omitempty"`
	Source      string                 `json:"source,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
