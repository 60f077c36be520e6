// Package routes holds the static route table of the service. Every route is
// registered once at startup under a stable identifier, and requests are
// resolved back to that identifier independently of path variable values.
package routes

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/oriys/searchgate/internal/middleware"
)

// Entry describes one registered route.
type Entry struct {
	Name    string `json:"name"`
	Method  string `json:"method"`
	Pattern string `json:"pattern"`
}

// Table maps (method, path pattern) pairs to route identifiers and dispatches
// requests to their handlers. Routes are matched in registration order and
// the first full match wins.
type Table struct {
	mu          sync.RWMutex
	router      *mux.Router
	entries     []Entry
	middlewares []middleware.Middleware
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{router: mux.NewRouter()}
}

// Handle registers handler for method and pattern under name. Patterns use
// mux syntax, e.g. "/{index_name}/_doc/{doc_id}/_explain".
func (t *Table) Handle(name, method, pattern string, handler http.Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.router.Handle(pattern, handler).Methods(method).Name(name)
	t.entries = append(t.entries, Entry{Name: name, Method: method, Pattern: pattern})
}

// HandleFunc is Handle for plain functions.
func (t *Table) HandleFunc(name, method, pattern string, fn http.HandlerFunc) {
	t.Handle(name, method, pattern, fn)
}

// Use appends middlewares to the pipeline in front of the table. They see
// every request, matched or not.
func (t *Table) Use(mws ...middleware.Middleware) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.middlewares = append(t.middlewares, mws...)
}

// RouteName returns the identifier of the first route that fully matches r
// (path and method), or "" when none does.
func (t *Table) RouteName(r *http.Request) string {
	var match mux.RouteMatch
	if !t.router.Match(r, &match) || match.MatchErr != nil || match.Route == nil {
		return ""
	}
	return match.Route.GetName()
}

// Routes returns the registered routes in registration order.
func (t *Table) Routes() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Handler builds the request pipeline: the middlewares added with Use, then
// the route dispatcher. Call it after all routes and middlewares are set.
func (t *Table) Handler() http.Handler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mws := make([]middleware.Middleware, len(t.middlewares))
	copy(mws, t.middlewares)
	return middleware.Chain(t.router, mws...)
}
