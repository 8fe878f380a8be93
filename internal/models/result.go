package models

// Relevance is a coarse human-facing classification derived from distance.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// SearchResult is a single similarity hit. Distance is cosine distance
// (smaller is closer); Score maps it to 0-100 for display.
type SearchResult struct {
	Record    *EmbeddingRecord `json:"record"`
	Distance  float64          `json:"distance"`
	Score     float64          `json:"score"`
	Relevance Relevance        `json:"relevance"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}
