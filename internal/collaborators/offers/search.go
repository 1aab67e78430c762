// Package offers implements the offer lookup collaborator on Elasticsearch.
package offers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"realestate-assistant/internal/assistant/dispatch"
	apperrors "realestate-assistant/internal/common/errors"
	"realestate-assistant/internal/common/logger"
	"realestate-assistant/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	defaultSize = 20
	maxSize     = 100
)

var ErrMissingIndex = errors.New("offers index is required")

type Searcher struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewSearcher(client *elasticsearch.Client, index string, log logger.Logger) *Searcher {
	return &Searcher{
		client: client,
		index:  index,
		logger: logger.ForComponent(log, "offers"),
	}
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string       `json:"_id"`
			Source models.Offer `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchOffers runs a full-text search over active offers. An empty query
// lists the newest ones.
func (s *Searcher) SearchOffers(ctx context.Context, q dispatch.Query) ([]models.Offer, error) {
	req, err := s.buildRequest(q)
	if err != nil {
		return nil, err
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewIndexNotFoundError(s.index)
	}
	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(s.index, fmt.Errorf("search returned %s", res.Status()))
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(s.index, err)
	}

	offers := make([]models.Offer, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		o := hit.Source
		if o.ID == "" {
			o.ID = hit.ID
		}
		offers = append(offers, o)
	}

	s.logger.Debug("offer search completed", map[string]interface{}{
		"query":     q.Text,
		"totalHits": body.Hits.Total.Value,
		"returned":  len(offers),
		"tookMs":    body.Took,
	})
	return offers, nil
}

func (s *Searcher) buildRequest(q dispatch.Query) (*esapi.SearchRequest, error) {
	if s.index == "" {
		return nil, apperrors.NewSearchQueryFailedError(s.index, ErrMissingIndex)
	}

	size := q.Limit
	if size <= 0 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}

	body, err := json.Marshal(BuildQuery(q.Text))
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{s.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}, nil
}

// BuildQuery returns the search body for text. Closed offers are excluded.
func BuildQuery(text string) map[string]interface{} {
	must := []interface{}{}
	if text = strings.TrimSpace(text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"title^3", "location^2", "propertyType"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
				"must_not": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"status": "closed"}},
				},
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"price": map[string]interface{}{"order": "asc"}},
		},
	}
}
