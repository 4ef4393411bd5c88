package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"goinsight/domain/insight"
	"goinsight/internal/errors"
)

// APIReader handles fetching dataset records from REST API endpoints
type APIReader struct {
	config      *Source
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewAPIReader creates a new API reader for a source
func NewAPIReader(config *Source) *APIReader {
	return &APIReader{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RateLimit),
	}
}

// FetchDataset retrieves every page and converts the records into a dataset
func (r *APIReader) FetchDataset(ctx context.Context) (insight.Dataset, error) {
	fetched, err := r.FetchData(ctx)
	if err != nil {
		return insight.Dataset{}, err
	}
	return insight.NewDataset(r.config.Columns, fetched.Records), nil
}

// FetchData retrieves records from the configured endpoint, following pagination
func (r *APIReader) FetchData(ctx context.Context) (*Fetched, error) {
	startTime := time.Now()
	source := r.sourceName()

	var allRecords []map[string]any
	var meta Metadata
	cursor := ""
	maxPages := r.config.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	for page := 0; page < maxPages; page++ {
		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, errors.DataLoad(source, fmt.Errorf("rate limit wait: %w", err))
		}

		reqURL, err := r.buildURL(cursor, page)
		if err != nil {
			return nil, errors.DataLoad(source, err)
		}
		req, err := r.buildRequest(ctx, reqURL)
		if err != nil {
			return nil, errors.DataLoad(source, fmt.Errorf("failed to build request: %w", err))
		}

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, errors.DataLoad(source, fmt.Errorf("HTTP request failed: %w", err))
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, errors.DataLoad(source, fmt.Errorf("failed to read response: %w", err))
		}
		if resp.StatusCode != http.StatusOK {
			return nil, errors.DataLoad(source, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(body), 200)))
		}

		records, err := ParseRecords(body, r.config.DataPath)
		if err != nil {
			return nil, errors.DataLoad(source, err)
		}
		allRecords = append(allRecords, records...)

		if page == 0 {
			meta = Metadata{
				URL:         reqURL,
				StatusCode:  resp.StatusCode,
				FetchedAt:   startTime,
				ContentType: resp.Header.Get("Content-Type"),
			}
		}
		meta.Pages = page + 1
		if remaining := resp.Header.Get("X-RateLimit-Remaining"); remaining != "" {
			if val, err := strconv.Atoi(remaining); err == nil {
				meta.RateLimitRemaining = val
			}
		}

		cursor = extractNextCursor(body)
		if !r.hasMorePages(meta, len(records), cursor) {
			break
		}
	}

	meta.ResponseTime = time.Since(startTime)
	meta.RecordsCount = len(allRecords)
	log.Printf("[APIReader] Fetched %d records from %s in %d page(s) (%.2fms)",
		meta.RecordsCount, source, meta.Pages, float64(meta.ResponseTime.Nanoseconds())/1e6)

	return &Fetched{Records: allRecords, Metadata: meta}, nil
}

// buildURL constructs the request URL with query and pagination parameters
func (r *APIReader) buildURL(cursor string, page int) (string, error) {
	u, err := url.Parse(r.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	params := u.Query()
	for k, v := range r.config.QueryParams {
		params.Set(k, v)
	}

	switch r.config.PaginationType {
	case "offset":
		params.Set("offset", strconv.Itoa(page*r.config.PageSize))
		params.Set("limit", strconv.Itoa(r.config.PageSize))
	case "page":
		params.Set("page", strconv.Itoa(page+1))
		params.Set("per_page", strconv.Itoa(r.config.PageSize))
	case "cursor":
		if cursor != "" {
			params.Set("cursor", cursor)
		}
	}

	u.RawQuery = params.Encode()
	return u.String(), nil
}

// buildRequest creates an HTTP request with authentication
func (r *APIReader) buildRequest(ctx context.Context, reqURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	switch r.config.AuthMethod {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+r.config.AuthToken)
	case "api_key":
		req.Header.Set("X-API-Key", r.config.AuthToken)
	case "basic":
		req.SetBasicAuth(r.config.Username, r.config.Password)
	}
	return req, nil
}

// hasMorePages determines if there are more pages to fetch
func (r *APIReader) hasMorePages(meta Metadata, pageRecords int, cursor string) bool {
	switch r.config.PaginationType {
	case "offset", "page":
		if pageRecords == 0 || pageRecords < r.config.PageSize {
			return false
		}
	case "cursor":
		if cursor == "" {
			return false
		}
	default:
		return false
	}

	// Stop while a few requests remain in the provider's window
	if meta.RateLimitRemaining > 0 && meta.RateLimitRemaining < 10 {
		return false
	}
	return true
}

func (r *APIReader) sourceName() string {
	if r.config.Name != "" {
		return r.config.Name
	}
	return r.config.BaseURL
}

// ParseRecords extracts the record array at dataPath from a JSON document.
// An empty path means the document itself; a single object becomes one record.
func ParseRecords(body []byte, dataPath string) ([]map[string]any, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	data := gjson.ParseBytes(body)
	if dataPath != "" {
		data = data.Get(dataPath)
	}
	if !data.Exists() {
		return nil, fmt.Errorf("data path '%s' not found in response", dataPath)
	}

	switch {
	case data.IsArray():
		var records []map[string]any
		var bad error
		data.ForEach(func(_, item gjson.Result) bool {
			if !item.IsObject() {
				bad = fmt.Errorf("record %d at '%s' is not an object", len(records), dataPath)
				return false
			}
			records = append(records, item.Value().(map[string]any))
			return true
		})
		if bad != nil {
			return nil, bad
		}
		return records, nil
	case data.IsObject():
		return []map[string]any{data.Value().(map[string]any)}, nil
	default:
		return nil, fmt.Errorf("data path '%s' is not an array or object", dataPath)
	}
}

// LoadFile reads a JSON document from disk and converts the records at
// dataPath into a dataset
func LoadFile(path, dataPath string) (insight.Dataset, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return insight.Dataset{}, errors.DataLoad(path, err)
	}
	records, err := ParseRecords(body, dataPath)
	if err != nil {
		return insight.Dataset{}, errors.DataLoad(path, err)
	}
	log.Printf("[APIReader] Loaded %d records from %s", len(records), path)
	return insight.NewDataset(nil, records), nil
}

// extractNextCursor extracts the cursor for the next page
func extractNextCursor(body []byte) string {
	cursorFields := []string{"next_cursor", "cursor", "meta.next_cursor", "continuation_token"}
	for _, field := range cursorFields {
		if cursor := gjson.GetBytes(body, field); cursor.Exists() && cursor.String() != "" {
			return cursor.String()
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RateLimiter spaces requests evenly across a minute
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// NewRateLimiter allows requestsPerMinute requests; zero or less disables limiting
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{}
	if requestsPerMinute > 0 {
		rl.interval = time.Minute / time.Duration(requestsPerMinute)
	}
	return rl
}

// Wait blocks until the next request may be sent or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	now := time.Now()
	wait := rl.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	rl.next = now.Add(wait + rl.interval)
	rl.mu.Unlock()

	if wait == 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
