package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/deckbuilder/internal/errs"
)

// Route is one entry of the route table.
type Route struct {
	Method  string
	Pattern string
	Name    string
	Handler http.Handler
}

// buildRoutes returns the route table in registration order. Account
// creation changes state, so register is POST; GET on it answers 405.
func (s *Server) buildRoutes() []Route {
	routes := []Route{
		{http.MethodGet, "/", "root", handle(s.root)},
		{http.MethodGet, "/health", "health", http.HandlerFunc(s.health)},
		{http.MethodGet, "/health/deep", "health_deep", http.HandlerFunc(s.healthDeep)},
		{http.MethodPost, "/api/v1/auth/login", "login", handle(s.login)},
		{http.MethodPost, "/api/v1/auth/register", "register", handle(s.register)},
		{http.MethodGet, "/api/v1/cards", "list_cards", handle(s.listCards)},
		{http.MethodGet, "/api/v1/cards/{id}", "get_card", handle(s.getCard)},
		{http.MethodGet, "/api/v1/cards/{id}/image", "card_image", handle(s.cardImage)},
		{http.MethodGet, "/api/v1/decks", "list_decks", handle(s.listDecks)},
		{http.MethodGet, "/api/v1/decks/{id}", "get_deck", handle(s.getDeck)},
	}
	if s.metrics != nil {
		routes = append(routes, Route{http.MethodGet, s.metrics.Path(), "metrics", s.metrics.Handler()})
	}
	return routes
}

// Routes returns a copy of the route table.
func (s *Server) Routes() []Route {
	return append([]Route(nil), s.routes...)
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, errs.New(errs.ErrKindNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)))
}

// methodNotAllowed answers a known path used with the wrong verb and lists
// the verbs that path does accept.
func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	allowed := s.allowedMethods(r.URL.Path)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Error: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
		Kind:  "method_not_allowed",
	})
}

func (s *Server) allowedMethods(path string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, rt := range s.routes {
		if seen[rt.Method] {
			continue
		}
		if s.mux.Match(chi.NewRouteContext(), rt.Method, path) {
			seen[rt.Method] = true
			out = append(out, rt.Method)
		}
	}
	return out
}
