package api

import "time"

// Source describes a REST endpoint that serves dataset records
type Source struct {
	Name        string            `json:"name" yaml:"name"`
	BaseURL     string            `json:"base_url" yaml:"base_url"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty" yaml:"query_params,omitempty"`

	// Authentication
	AuthMethod string `json:"auth_method" yaml:"auth_method"` // "none", "bearer", "api_key", "basic"
	AuthToken  string `json:"auth_token,omitempty" yaml:"auth_token,omitempty"`
	Username   string `json:"username,omitempty" yaml:"username,omitempty"`
	Password   string `json:"password,omitempty" yaml:"password,omitempty"`

	// Data extraction
	DataPath string   `json:"data_path" yaml:"data_path"` // gjson path of the record array, e.g. "data.items"
	Columns  []string `json:"columns,omitempty" yaml:"columns,omitempty"`

	// Pagination
	PaginationType string `json:"pagination_type" yaml:"pagination_type"` // "none", "offset", "cursor", "page"
	PageSize       int    `json:"page_size" yaml:"page_size"`
	MaxPages       int    `json:"max_pages" yaml:"max_pages"`

	RateLimit int           `json:"rate_limit" yaml:"rate_limit"` // requests per minute
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultSource returns a source with sensible paging and timeout defaults
func DefaultSource(baseURL string) *Source {
	return &Source{
		BaseURL:        baseURL,
		AuthMethod:     "none",
		PaginationType: "none",
		PageSize:       100,
		MaxPages:       10,
		RateLimit:      60,
		Timeout:        30 * time.Second,
	}
}

// Fetched is the outcome of one fetch across all pages
type Fetched struct {
	Records  []map[string]any `json:"records"`
	Metadata Metadata         `json:"metadata"`
}

// Metadata contains information about the fetch
type Metadata struct {
	URL                string        `json:"url"`
	StatusCode         int           `json:"status_code"`
	Pages              int           `json:"pages"`
	ResponseTime       time.Duration `json:"response_time"`
	FetchedAt          time.Time     `json:"fetched_at"`
	RecordsCount       int           `json:"records_count"`
	ContentType        string        `json:"content_type"`
	RateLimitRemaining int           `json:"rate_limit_remaining,omitempty"`
}
