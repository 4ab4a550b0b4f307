package source

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	httpclient "probate-resolver/internal/common/http"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/phone"
)

var whitespace = regexp.MustCompile(`\s+`)

// WebSearchConfig points at a custom-search style JSON API.
type WebSearchConfig struct {
	BaseURL    string
	APIKey     string
	EngineID   string
	MaxResults int
}

// WebSearchAdapter turns web results into candidates. Only results that show a
// phone number in their snippet become candidates; web hits have no detail page.
type WebSearchAdapter struct {
	name   models.Source
	config WebSearchConfig
	client *httpclient.Client
}

func NewWebSearchAdapter(name string, cfg WebSearchConfig, client *httpclient.Client) *WebSearchAdapter {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &WebSearchAdapter{name: models.Source(name), config: cfg, client: client}
}

func (a *WebSearchAdapter) Name() models.Source { return a.name }

func (a *WebSearchAdapter) buildSearchURL(query string) (string, error) {
	u, err := url.Parse(a.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid web search base url: %w", err)
	}
	params := url.Values{}
	params.Add("key", a.config.APIKey)
	params.Add("cx", a.config.EngineID)
	params.Add("q", query)
	params.Add("num", fmt.Sprintf("%d", a.config.MaxResults))
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// SearchText runs a raw query.
func (a *WebSearchAdapter) SearchText(ctx context.Context, query string) ([]TextHit, error) {
	query = whitespace.ReplaceAllString(strings.TrimSpace(query), " ")
	searchURL, err := a.buildSearchURL(query)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []TextHit `json:"items"`
	}
	if err := a.client.GetJSON(ctx, searchURL, &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(resp.Items))
	hits := make([]TextHit, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link != "" && seen[item.Link] {
			continue
		}
		seen[item.Link] = true
		hits = append(hits, item)
	}
	return hits, nil
}

func (a *WebSearchAdapter) Search(ctx context.Context, name string, hint models.LocationHint) ([]models.Candidate, error) {
	query := strings.Join([]string{name, hint.City, hint.State, "phone address"}, " ")
	hits, err := a.SearchText(ctx, query)
	if err != nil {
		return nil, err
	}

	var out []models.Candidate
	for _, hit := range hits {
		phones := phone.Extract(hit.Snippet)
		if len(phones) == 0 {
			continue
		}
		out = append(out, models.Candidate{
			FullName:      TitleName(hit.Title),
			Source:        a.name,
			VisiblePhones: phones,
			Snippet:       hit.Snippet,
			Extensions:    map[string]string{"link": hit.Link},
		})
	}
	return out, nil
}

// FetchDetail is a no-op: web results have no detail page.
func (a *WebSearchAdapter) FetchDetail(ctx context.Context, reference string) (*models.DetailProfile, error) {
	return nil, nil
}

// TitleName takes the leading name part of a result title such as
// "Jane Smith - Seattle, WA | PeopleSite".
func TitleName(title string) string {
	name := strings.SplitN(title, " | ", 2)[0]
	name = strings.SplitN(name, " - ", 2)[0]
	return strings.TrimSpace(name)
}
