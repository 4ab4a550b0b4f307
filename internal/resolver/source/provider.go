package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	httpclient "probate-resolver/internal/common/http"
	"probate-resolver/internal/models"
)

// ProviderAdapter talks to a people-search provider that exposes
// GET /search?name=&city=&state= and GET /profile?ref=.
type ProviderAdapter struct {
	name    models.Source
	baseURL string
	client  *httpclient.Client
}

type providerSearchResponse struct {
	Results []models.Candidate `json:"results"`
}

func NewProviderAdapter(name, baseURL string, client *httpclient.Client) *ProviderAdapter {
	return &ProviderAdapter{name: models.Source(name), baseURL: baseURL, client: client}
}

func (a *ProviderAdapter) Name() models.Source { return a.name }

func (a *ProviderAdapter) endpoint(path string, params url.Values) (string, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid provider base url: %w", err)
	}
	u = u.JoinPath(path)
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (a *ProviderAdapter) Search(ctx context.Context, name string, hint models.LocationHint) ([]models.Candidate, error) {
	params := url.Values{}
	params.Set("name", name)
	if !hint.Nationwide {
		if hint.City != "" {
			params.Set("city", hint.City)
		}
		if hint.State != "" {
			params.Set("state", hint.State)
		}
	}
	endpoint, err := a.endpoint("search", params)
	if err != nil {
		return nil, err
	}

	var resp providerSearchResponse
	if err := a.client.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	for i := range resp.Results {
		resp.Results[i].Source = a.name
	}
	return resp.Results, nil
}

func (a *ProviderAdapter) FetchDetail(ctx context.Context, reference string) (*models.DetailProfile, error) {
	params := url.Values{}
	params.Set("ref", reference)
	endpoint, err := a.endpoint("profile", params)
	if err != nil {
		return nil, err
	}

	var p models.DetailProfile
	if err := a.client.GetJSON(ctx, endpoint, &p); err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
