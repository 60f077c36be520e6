// Package proxy exposes the search and explain routes that relay requests to
// Elasticsearch on behalf of relevance-tuning clients.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oriys/searchgate/internal/circuitbreaker"
	"github.com/oriys/searchgate/internal/middleware"
	"github.com/oriys/searchgate/internal/routes"
	"github.com/oriys/searchgate/internal/search"
)

// Route identifiers of the proxy endpoints.
const (
	SearchProxyRoute             = "searchgate.proxy.search_proxy"
	ExplainMissingDocumentsRoute = "searchgate.proxy.explain_missing_documents"
	ExplainRoute                 = "searchgate.proxy.explain"
)

// DefaultMeasureRoutes are timed when the configuration does not name any.
var DefaultMeasureRoutes = []string{
	ExplainMissingDocumentsRoute,
	ExplainRoute,
	SearchProxyRoute,
}

// maxBodyBytes bounds request bodies read by the proxy.
const maxBodyBytes = 1 << 20

// Searcher runs queries against the search cluster.
type Searcher interface {
	Search(ctx context.Context, req search.SearchRequest) (*search.Response, error)
	Explain(ctx context.Context, index, docID string, query json.RawMessage) (*search.Response, error)
}

// Handlers serves the proxy routes.
type Handlers struct {
	searcher Searcher
}

// NewHandlers creates the proxy handlers.
func NewHandlers(searcher Searcher) *Handlers {
	return &Handlers{searcher: searcher}
}

// Register adds the proxy routes to table, each wrapped with authMW. Routes
// registered earlier take precedence over /{index_name}.
func Register(table *routes.Table, h *Handlers, authMW middleware.Middleware) {
	wrap := func(fn http.HandlerFunc) http.Handler {
		if authMW == nil {
			return fn
		}
		return authMW(fn)
	}

	table.Handle(SearchProxyRoute, http.MethodPost, "/{index_name}", wrap(h.SearchProxy))
	table.Handle(ExplainMissingDocumentsRoute, http.MethodGet, "/{index_name}", wrap(h.ExplainMissingDocuments))
	table.Handle(ExplainRoute, http.MethodPost, "/{index_name}/_doc/{doc_id}/_explain", wrap(h.Explain))
}

// SearchProxy runs the search described by the JSON body on index_name.
func (h *Handlers) SearchProxy(w http.ResponseWriter, r *http.Request) {
	index := mux.Vars(r)["index_name"]

	var body searchBody
	if err := decodeJSON(w, r, &body); err != nil {
		writeValidationError(w, err)
		return
	}
	req, err := body.toRequest(index)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	res, err := h.searcher.Search(r.Context(), req)
	h.relay(w, r, res, err)
}

// ExplainMissingDocuments runs a query-string search, used by clients to
// look up documents that a query did not return.
func (h *Handlers) ExplainMissingDocuments(w http.ResponseWriter, r *http.Request) {
	index := mux.Vars(r)["index_name"]

	params, err := parseLookupParams(r.URL.Query())
	if err != nil {
		writeValidationError(w, err)
		return
	}

	req := search.SearchRequest{
		Index: index,
		From:  0,
		Size:  params.size,
		Q:     params.q,
	}
	if params.source != "" {
		req.Source = []string{params.source}
	}

	res, err := h.searcher.Search(r.Context(), req)
	h.relay(w, r, res, err)
}

// Explain relays the explain API for one document. The JSON body is passed
// through unchanged.
func (h *Handlers) Explain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var query map[string]json.RawMessage
	if err := decodeJSON(w, r, &query); err != nil {
		writeValidationError(w, err)
		return
	}
	if query == nil {
		writeValidationError(w, errors.New("body must be a JSON object"))
		return
	}
	raw, err := json.Marshal(query)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	res, err := h.searcher.Explain(r.Context(), vars["index_name"], vars["doc_id"], raw)
	h.relay(w, r, res, err)
}

func (h *Handlers) relay(w http.ResponseWriter, r *http.Request, res *search.Response, err error) {
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, circuitbreaker.ErrOpen) {
			status = http.StatusServiceUnavailable
		}
		slog.Error("search request failed",
			slog.String("request_id", middleware.GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, status, "search_unavailable", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusUnprocessableEntity, "invalid_request", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": message,
	})
}
