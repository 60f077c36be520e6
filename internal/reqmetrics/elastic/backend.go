// Package elastic stores benchmark records in an Elasticsearch index and
// aggregates them with a terms aggregation.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/tidwall/gjson"

	"github.com/oriys/searchgate/internal/reqmetrics"
)

// DefaultIndex is the index used when none is configured.
const DefaultIndex = "searchgate.metrics"

// timestampLayout is ISO-8601 with fixed millisecond precision, UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var errUnexpectedStatus = errors.New("unexpected elasticsearch response")

// Mapping is the index mapping for benchmark documents.
var Mapping = map[string]any{
	"properties": map[string]any{
		"timestamp": map[string]any{"type": "date"},
		"endpoint":  map[string]any{"type": "keyword"},
		"wall_ms":   map[string]any{"type": "float"},
	},
}

// Backend is a reqmetrics.Backend on top of an Elasticsearch index.
type Backend struct {
	client    *elasticsearch.Client
	index     string
	termsSize int
}

// Option configures a Backend.
type Option func(*Backend)

// WithIndex overrides the index name.
func WithIndex(index string) Option {
	return func(b *Backend) {
		if index != "" {
			b.index = index
		}
	}
}

// WithTermsSize sets how many endpoints Aggregate returns at most.
func WithTermsSize(n int) Option {
	return func(b *Backend) {
		if n > 0 {
			b.termsSize = n
		}
	}
}

// New creates a Backend. No request is sent until Setup.
func New(client *elasticsearch.Client, opts ...Option) *Backend {
	b := &Backend{
		client:    client,
		index:     DefaultIndex,
		termsSize: 10,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Index returns the index name.
func (b *Backend) Index() string {
	return b.index
}

// Setup creates the index with its mapping, or updates the mapping when the
// index already exists.
func (b *Backend) Setup(ctx context.Context) error {
	res, err := b.client.Indices.Exists([]string{b.index}, b.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index %s: %w", b.index, err)
	}
	drain(res)

	switch res.StatusCode {
	case http.StatusNotFound:
		return b.createIndex(ctx)
	case http.StatusOK:
		return b.putMapping(ctx)
	default:
		return fmt.Errorf("check index %s: %w: status %d", b.index, errUnexpectedStatus, res.StatusCode)
	}
}

func (b *Backend) createIndex(ctx context.Context) error {
	body, err := json.Marshal(map[string]any{"mappings": Mapping})
	if err != nil {
		return err
	}

	res, err := b.client.Indices.Create(b.index,
		b.client.Indices.Create.WithBody(bytes.NewReader(body)),
		b.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index %s: %w", b.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		// Lost a creation race with another instance.
		if gjson.GetBytes(raw, "error.type").String() == "resource_already_exists_exception" {
			return nil
		}
		return fmt.Errorf("create index %s: %w: %s", b.index, errUnexpectedStatus, responseError(res.StatusCode, raw))
	}
	return nil
}

func (b *Backend) putMapping(ctx context.Context) error {
	body, err := json.Marshal(Mapping)
	if err != nil {
		return err
	}

	res, err := b.client.Indices.PutMapping([]string{b.index}, bytes.NewReader(body),
		b.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("put mapping %s: %w", b.index, err)
	}
	return checkResponse("put mapping "+b.index, res)
}

// Write indexes one document.
func (b *Backend) Write(ctx context.Context, doc reqmetrics.Document) error {
	body, err := json.Marshal(map[string]any{
		"endpoint":  doc.Endpoint,
		"wall_ms":   doc.WallMS,
		"timestamp": doc.Timestamp.UTC().Format(timestampLayout),
	})
	if err != nil {
		return err
	}

	res, err := b.client.Index(b.index, bytes.NewReader(body), b.client.Index.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	return checkResponse("index document", res)
}

// Aggregate runs a terms aggregation on endpoint with the average wall_ms of
// every bucket, limited to documents of the trailing interval.
func (b *Backend) Aggregate(ctx context.Context, interval reqmetrics.Interval) ([]reqmetrics.EndpointMetric, error) {
	query, err := json.Marshal(aggregationQuery(interval, b.termsSize))
	if err != nil {
		return nil, err
	}

	res, err := b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(b.index),
		b.client.Search.WithBody(bytes.NewReader(query)),
	)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", b.index, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %w: %s", b.index, errUnexpectedStatus, responseError(res.StatusCode, raw))
	}

	return parseBuckets(raw, interval), nil
}

func aggregationQuery(interval reqmetrics.Interval, termsSize int) map[string]any {
	return map[string]any{
		"size": 0,
		"query": map[string]any{
			"range": map[string]any{
				"timestamp": map[string]any{"gte": "now-" + interval.String()},
			},
		},
		"aggs": map[string]any{
			"endpoints": map[string]any{
				"terms": map[string]any{"field": "endpoint", "size": termsSize},
				"aggs": map[string]any{
					"average_response_time_ms": map[string]any{
						"avg": map[string]any{"field": "wall_ms"},
					},
				},
			},
		},
	}
}

func parseBuckets(raw []byte, interval reqmetrics.Interval) []reqmetrics.EndpointMetric {
	buckets := gjson.GetBytes(raw, "aggregations.endpoints.buckets").Array()
	result := make([]reqmetrics.EndpointMetric, 0, len(buckets))
	for _, bucket := range buckets {
		metric := reqmetrics.EndpointMetric{
			Endpoint:      bucket.Get("key").String(),
			Interval:      interval.String(),
			RequestsCount: bucket.Get("doc_count").Int(),
		}
		if avg := bucket.Get("average_response_time_ms.value"); avg.Exists() && avg.Type == gjson.Number {
			v := avg.Float()
			metric.AverageResponseTime = &v
		}
		result = append(result, metric)
	}
	reqmetrics.SortMetrics(result)
	return result
}

func checkResponse(op string, res *esapi.Response) error {
	defer res.Body.Close()
	if !res.IsError() {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	raw, _ := io.ReadAll(res.Body)
	return fmt.Errorf("%s: %w: %s", op, errUnexpectedStatus, responseError(res.StatusCode, raw))
}

func responseError(status int, raw []byte) string {
	reason := gjson.GetBytes(raw, "error.reason").String()
	if reason == "" {
		reason = strings.TrimSpace(string(raw))
	}
	return fmt.Sprintf("status %d: %s", status, reason)
}

func drain(res *esapi.Response) {
	if res != nil && res.Body != nil {
		io.Copy(io.Discard, res.Body)
		res.Body.Close()
	}
}
