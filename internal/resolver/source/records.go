package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"probate-resolver/internal/models"
)

const recordsPageSize = 20

// recordDoc is the indexed shape of one public-records person.
type recordDoc struct {
	FullName  string            `json:"fullName"`
	Age       string            `json:"age"`
	City      string            `json:"city"`
	State     string            `json:"state"`
	Phones    []string          `json:"phones"`
	Relatives []models.Relative `json:"relatives"`
	Deceased  *bool             `json:"deceased"`
	Snippet   string            `json:"snippet"`
}

func (d recordDoc) location() string {
	switch {
	case d.City != "" && d.State != "":
		return d.City + ", " + d.State
	case d.City != "":
		return d.City
	default:
		return d.State
	}
}

func (d recordDoc) deceased() models.Deceased {
	if d.Deceased == nil {
		return models.DeceasedUnknown
	}
	return models.DeceasedFromBool(*d.Deceased)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string    `json:"_id"`
			Source recordDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type getResponse struct {
	ID     string    `json:"_id"`
	Found  bool      `json:"found"`
	Source recordDoc `json:"_source"`
}

// RecordsAdapter searches a public-records index in Elasticsearch. Document
// ids are the detail references.
type RecordsAdapter struct {
	name   models.Source
	client *elasticsearch.Client
	index  string
}

func NewRecordsAdapter(name string, client *elasticsearch.Client, index string) *RecordsAdapter {
	return &RecordsAdapter{name: models.Source(name), client: client, index: index}
}

func (a *RecordsAdapter) Name() models.Source { return a.name }

// BuildQuery returns the search body for a name and location hint.
func BuildQuery(name string, hint models.LocationHint) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"match": map[string]interface{}{
					"fullName": map[string]interface{}{
						"query":     name,
						"operator":  "and",
						"fuzziness": "AUTO",
					},
				},
			},
		},
	}

	if !hint.Nationwide {
		if hint.State != "" {
			boolQuery["filter"] = []interface{}{
				map[string]interface{}{
					"term": map[string]interface{}{"state.keyword": strings.ToUpper(hint.State)},
				},
			}
		}
		if hint.City != "" {
			boolQuery["should"] = []interface{}{
				map[string]interface{}{
					"match": map[string]interface{}{"city": hint.City},
				},
			}
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}

func (a *RecordsAdapter) Search(ctx context.Context, name string, hint models.LocationHint) ([]models.Candidate, error) {
	body, err := json.Marshal(BuildQuery(name, hint))
	if err != nil {
		return nil, err
	}

	size := recordsPageSize
	req := esapi.SearchRequest{
		Index: []string{a.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("records search failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode records search: %w", err)
	}

	out := make([]models.Candidate, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		doc := hit.Source
		out = append(out, models.Candidate{
			FullName:        doc.FullName,
			Age:             doc.Age,
			Location:        doc.location(),
			DetailReference: hit.ID,
			Source:          a.name,
			VisiblePhones:   doc.Phones,
			Relatives:       doc.Relatives,
			Deceased:        doc.deceased(),
			Snippet:         doc.Snippet,
		})
	}
	return out, nil
}

func (a *RecordsAdapter) FetchDetail(ctx context.Context, reference string) (*models.DetailProfile, error) {
	req := esapi.GetRequest{Index: a.index, DocumentID: reference}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("records get failed: %s", res.String())
	}

	var r getResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode records doc: %w", err)
	}
	if !r.Found {
		return nil, nil
	}
	return &models.DetailProfile{
		ResolvedFullName: r.Source.FullName,
		AllPhones:        r.Source.Phones,
		AllRelatives:     r.Source.Relatives,
		Deceased:         r.Source.deceased(),
	}, nil
}
