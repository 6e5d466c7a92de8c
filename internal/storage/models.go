// Package storage archives responses in SQLite so they can be reloaded and
// decoded again later.
package storage

import "time"

// Kind values stored in the kind column.
const (
	KindRaw  = "raw"
	KindText = "text"
	KindHTML = "html"
	KindXML  = "xml"
)

// Record summarizes an archived response without its body.
type Record struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalized_url"`
	Host          string    `json:"host"`
	RequestURL    string    `json:"request_url,omitempty"`
	StatusCode    int       `json:"status_code"`
	Kind          string    `json:"kind"`
	ContentType   string    `json:"content_type,omitempty"`
	BodySize      int64     `json:"body_size"`
	Flags         []string  `json:"flags"`
	Encoding      string    `json:"encoding,omitempty"`
	EncodingSrc   string    `json:"encoding_source,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// EncodingStat is one row of the encoding_summary view.
type EncodingStat struct {
	Encoding   string `json:"encoding"`
	Source     string `json:"encoding_source"`
	Responses  int    `json:"responses"`
	TotalBytes int64  `json:"total_bytes"`
}

// ListOptions filters List.
type ListOptions struct {
	Host  string
	Limit int // 0 = no limit
}
