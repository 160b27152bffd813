package server

// ProbeSummary is the listing form of a stored probe. The document itself is
// served by GET /probes/{id}.
type ProbeSummary struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	FinalURL   string `json:"final_url,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
