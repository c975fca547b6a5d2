// Package search provides a client for the Tavily web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"soul-chat-go/internal/config"
	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/metrics"
)

// 网关返回给调用方的错误文案
const (
	MsgNotConfigured = "Search API key is not configured"
	MsgAuthFailure   = "The search API key seems to be invalid or expired. Please provide a valid Tavily API key."
	MsgTimeout       = "Request timed out or failed"
	MsgNoResults     = "No results found for this query"
	MsgBadPayload    = "Invalid response from search API"
)

// ErrNotConfigured 表示未配置 API key，此时不会发起任何网络请求。
var ErrNotConfigured = errors.New("search API key is not configured")

// APIError 表示搜索服务返回了非 2xx 状态码。
type APIError struct {
	StatusCode int
	StatusText string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("search api returned status %d %s: %s", e.StatusCode, e.StatusText, e.Body)
}

// IsAuthFailure 判断是否为凭证无效或过期。
func (e *APIError) IsAuthFailure() bool {
	if e.StatusCode == http.StatusUnauthorized {
		return true
	}
	body := strings.ToLower(e.Body)
	return strings.Contains(body, "unauthorized") || strings.Contains(body, "invalid api key")
}

// Outcome 是一次搜索的归一化结果，失败信息只放在 ErrorMessage 中，不会以 error 形式返回。
type Outcome struct {
	Success      bool
	ResultText   string
	ErrorMessage string
}

// Result 是单条搜索结果。
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Response 对应 Tavily 的响应体。
type Response struct {
	Query    string   `json:"query"`
	SearchID string   `json:"search_id"`
	Answer   string   `json:"answer"`
	Results  []Result `json:"results"`
}

type searchRequest struct {
	Query             string   `json:"query"`
	SearchDepth       string   `json:"search_depth"`
	IncludeDomains    []string `json:"include_domains"`
	ExcludeDomains    []string `json:"exclude_domains"`
	MaxResults        int      `json:"max_results"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeImages     bool     `json:"include_images"`
	IncludeRawContent bool     `json:"include_raw_content"`
}

// Client defines the interface for a web search client.
type Client interface {
	// Search 执行搜索并把所有失败折叠进 Outcome，永远不会返回 error。
	Search(ctx context.Context, query string) Outcome
	// Lookup 执行搜索并返回原始响应，供 /api/search 直接透传。
	Lookup(ctx context.Context, query string) (*Response, error)
}

type tavilyClient struct {
	cfg    config.SearchConfig
	client *http.Client
}

// NewClient creates a new search client from the search config.
func NewClient(cfg config.SearchConfig) Client {
	return &tavilyClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (c *tavilyClient) maxResults() int {
	if c.cfg.MaxResults <= 0 {
		return 3
	}
	return c.cfg.MaxResults
}

func (c *tavilyClient) snippetLength() int {
	if c.cfg.SnippetLength <= 0 {
		return 150
	}
	return c.cfg.SnippetLength
}

func (c *tavilyClient) Lookup(ctx context.Context, query string) (*Response, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	depth := c.cfg.SearchDepth
	if depth == "" {
		depth = "basic"
	}
	reqBody := searchRequest{
		Query:          query,
		SearchDepth:    depth,
		IncludeDomains: []string{},
		ExcludeDomains: []string{},
		MaxResults:     c.maxResults(),
		IncludeAnswer:  true,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.SearchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to call search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		statusText := http.StatusText(resp.StatusCode)
		if statusText == "" {
			statusText = resp.Status
		}
		return nil, &APIError{StatusCode: resp.StatusCode, StatusText: statusText, Body: string(bodyBytes)}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return &out, nil
}

func (c *tavilyClient) Search(ctx context.Context, query string) Outcome {
	resp, err := c.Lookup(ctx, query)
	if err != nil {
		outcome, label := c.describeFailure(err)
		metrics.SearchRequests.WithLabelValues(label).Inc()
		log.Warnf("[SearchClient] 搜索失败, query: '%s', outcome: %s, error: %v", query, label, err)
		return outcome
	}

	if strings.TrimSpace(resp.Answer) != "" {
		metrics.SearchRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
		return Outcome{Success: true, ResultText: resp.Answer}
	}
	if len(resp.Results) > 0 {
		metrics.SearchRequests.WithLabelValues(metrics.OutcomeSuccess).Inc()
		return Outcome{Success: true, ResultText: c.formatResults(query, resp.Results)}
	}

	metrics.SearchRequests.WithLabelValues(metrics.OutcomeNoResults).Inc()
	log.Infof("[SearchClient] 搜索无结果, query: '%s'", query)
	return Outcome{Success: false, ErrorMessage: MsgNoResults}
}

// describeFailure 把 Lookup 的错误映射为面向用户的文案和指标标签。
func (c *tavilyClient) describeFailure(err error) (Outcome, string) {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return Outcome{ErrorMessage: MsgNotConfigured}, metrics.OutcomeNotConfigured
	case errors.As(err, &apiErr):
		if apiErr.IsAuthFailure() {
			return Outcome{ErrorMessage: MsgAuthFailure}, metrics.OutcomeAuthFailure
		}
		return Outcome{ErrorMessage: "Error from search API: " + apiErr.StatusText}, metrics.OutcomeAPIError
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return Outcome{ErrorMessage: MsgTimeout}, metrics.OutcomeTimeout
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Outcome{ErrorMessage: MsgBadPayload}, metrics.OutcomeAPIError
	}
	return Outcome{ErrorMessage: err.Error()}, metrics.OutcomeTransport
}

func (c *tavilyClient) formatResults(query string, results []Result) string {
	if len(results) > c.maxResults() {
		results = results[:c.maxResults()]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found about \"%s\":\n\n", query)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   %s...\n   Source: %s\n\n", i+1, r.Title, truncate(r.Content, c.snippetLength()), r.URL)
	}
	return b.String()
}

// truncate 按字符（rune）截断，避免切断多字节字符。
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
