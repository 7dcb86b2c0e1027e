package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const searchResultLimit = 3

// WebSearchTool queries SerpAPI for live results. Without an API key it
// degrades to a hint telling the model to answer from its own knowledge.
type WebSearchTool struct {
	apiKey string
	client *http.Client
}

// NewWebSearchTool returns a WebSearchTool. apiKey may be empty.
func NewWebSearchTool(apiKey string) *WebSearchTool {
	return &WebSearchTool{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return `搜索网络获取实时信息。
当用户询问以下问题时可以使用：
- 最新新闻、时事
- 实时信息（天气预报、股票等）
- 不确定或需要验证的知识
- 最新的技术/产品信息`
}

func (t *WebSearchTool) Parameters() []Param {
	return []Param{
		{
			Name:        "query",
			Type:        "string",
			Description: "搜索关键词",
			Required:    true,
		},
		{
			Name:        "search_type",
			Type:        "string",
			Description: "搜索类型",
			Required:    false,
			Enum:        []string{"general", "news", "images"},
			Default:     "general",
		},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]any) Result {
	query := stringArg(args, "query", "")
	if query == "" {
		return Result{Success: false, Error: "搜索需要提供 query"}
	}

	if t.apiKey == "" {
		return Result{Success: true, Data: map[string]any{
			"message":    "搜索功能暂未启用，无法获取实时信息。",
			"suggestion": "请告诉用户你目前无法联网搜索，但可以根据已有知识回答。",
			"query":      query,
		}}
	}

	results, err := t.search(ctx, query)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{Success: true, Data: map[string]any{
		"query":   query,
		"count":   len(results),
		"results": results,
	}}
}

func (t *WebSearchTool) search(ctx context.Context, query string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", t.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://serpapi.com/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call search API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read search response: %w", err)
	}

	var parsed struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]map[string]any, 0, searchResultLimit)
	for _, item := range parsed.OrganicResults {
		if len(results) >= searchResultLimit {
			break
		}
		results = append(results, map[string]any{
			"title":   item.Title,
			"link":    item.Link,
			"snippet": item.Snippet,
		})
	}
	return results, nil
}
