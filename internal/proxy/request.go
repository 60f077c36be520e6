package proxy

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/oriys/searchgate/internal/search"
)

// searchBody is the body of POST /{index_name}. explain, from and size are
// required; _source and query may be omitted or null.
type searchBody struct {
	Explain *bool           `json:"explain"`
	From    *int            `json:"from"`
	Size    *int            `json:"size"`
	Source  json.RawMessage `json:"_source"`
	Query   json.RawMessage `json:"query"`
}

func (b searchBody) toRequest(index string) (search.SearchRequest, error) {
	var missing []string
	if b.Explain == nil {
		missing = append(missing, "explain")
	}
	if b.From == nil {
		missing = append(missing, "from")
	}
	if b.Size == nil {
		missing = append(missing, "size")
	}
	if len(missing) > 0 {
		return search.SearchRequest{}, fmt.Errorf("missing required fields: %v", missing)
	}

	source, err := parseSource(b.Source)
	if err != nil {
		return search.SearchRequest{}, err
	}

	req := search.SearchRequest{
		Index:   index,
		From:    *b.From,
		Size:    *b.Size,
		Explain: *b.Explain,
		Source:  source,
	}
	if !isNull(b.Query) {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b.Query, &obj); err != nil {
			return search.SearchRequest{}, errors.New("query must be a JSON object")
		}
		// An empty query object means no query, i.e. match all.
		if len(obj) > 0 {
			req.Query = b.Query
		}
	}
	return req, nil
}

// parseSource accepts a field name, a list of field names or null.
func parseSource(raw json.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}

	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	return nil, errors.New("_source must be a string, a list of strings or null")
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

type lookupParams struct {
	source string
	q      string
	size   int
}

// parseLookupParams reads the required _source, q and size parameters of
// GET /{index_name}.
func parseLookupParams(values url.Values) (lookupParams, error) {
	var missing []string
	for _, key := range []string{"_source", "q", "size"} {
		if _, ok := values[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return lookupParams{}, fmt.Errorf("missing required query parameters: %v", missing)
	}

	size, err := strconv.Atoi(values.Get("size"))
	if err != nil {
		return lookupParams{}, fmt.Errorf("size must be an integer: %w", err)
	}

	return lookupParams{
		source: values.Get("_source"),
		q:      values.Get("q"),
		size:   size,
	}, nil
}
