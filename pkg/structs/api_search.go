package structs

// SearchRequest is a structured query against the artifact index.
type SearchRequest struct {
	// Text is the free-text query to rank indexed artifacts against.
	Text string `json:"text"`

	// Limit caps the number of results (defaulted when <= 0).
	Limit int `json:"limit"`
}

// SearchResult maps an index hit back to its job & artifact.
type SearchResult struct {
	JobID    string  `json:"job_id"`
	Location string  `json:"location"`
	Score    float64 `json:"score"`
}
