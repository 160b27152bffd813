package history

// Record is one stored probe result.
type Record struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
	FinalURL   string `json:"final_url,omitempty"`
	// Document is the emitted header document, verbatim.
	Document  []byte `json:"-"`
	CreatedAt int64  `json:"created_at"`
}
