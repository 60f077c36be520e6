package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oriys/searchgate/internal/circuitbreaker"
)

// ErrUnavailable is returned when Elasticsearch cannot be reached or the
// circuit breaker rejects the call.
var ErrUnavailable = errors.New("search backend unavailable")

var errServerStatus = errors.New("elasticsearch server error")

// Response is a raw Elasticsearch answer relayed to the caller as is.
type Response struct {
	StatusCode int
	Body       []byte
}

// SearchRequest carries the parameters accepted by the proxy routes.
type SearchRequest struct {
	Index   string
	From    int
	Size    int
	Explain bool
	// Source lists the fields to return; nil returns the whole document.
	Source []string
	// Query is the value of the "query" key of the search body, if any.
	Query json.RawMessage
	// Q is a query string in Lucene syntax.
	Q string
}

// Executor runs searches through a circuit breaker. 5xx answers and
// transport errors count as breaker failures; 4xx answers do not.
type Executor struct {
	client  *elasticsearch.Client
	breaker *circuitbreaker.CircuitBreaker
}

// NewExecutor creates an Executor.
func NewExecutor(client *elasticsearch.Client, breaker *circuitbreaker.CircuitBreaker) *Executor {
	return &Executor{client: client, breaker: breaker}
}

// Search runs a search on req.Index.
func (e *Executor) Search(ctx context.Context, req SearchRequest) (*Response, error) {
	opts := []func(*esapi.SearchRequest){
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(req.Index),
		e.client.Search.WithFrom(req.From),
		e.client.Search.WithSize(req.Size),
		e.client.Search.WithExplain(req.Explain),
	}
	if len(req.Source) > 0 {
		opts = append(opts, e.client.Search.WithSource(req.Source...))
	}
	if req.Q != "" {
		opts = append(opts, e.client.Search.WithQuery(req.Q))
	}
	if len(req.Query) > 0 {
		body, err := json.Marshal(map[string]json.RawMessage{"query": req.Query})
		if err != nil {
			return nil, fmt.Errorf("encode search body: %w", err)
		}
		opts = append(opts, e.client.Search.WithBody(bytes.NewReader(body)))
	}

	return e.do("search "+req.Index, func() (*esapi.Response, error) {
		return e.client.Search(opts...)
	})
}

// Explain asks why document docID of index does or does not match query.
// query is the complete explain body, e.g. {"query": {...}}.
func (e *Executor) Explain(ctx context.Context, index, docID string, query json.RawMessage) (*Response, error) {
	return e.do("explain "+index+"/"+docID, func() (*esapi.Response, error) {
		return e.client.Explain(index, docID,
			e.client.Explain.WithContext(ctx),
			e.client.Explain.WithBody(bytes.NewReader(query)),
		)
	})
}

func (e *Executor) do(op string, call func() (*esapi.Response, error)) (*Response, error) {
	var out *Response
	err := e.breaker.Execute(func() error {
		res, err := call()
		if err != nil {
			return err
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		out = &Response{StatusCode: res.StatusCode, Body: body}
		if res.StatusCode >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	})

	if err == nil || errors.Is(err, errServerStatus) {
		return out, nil
	}
	return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
