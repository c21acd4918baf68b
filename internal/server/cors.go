package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/koustreak/deckbuilder/internal/errs"
)

// CORSPolicy is the cross-origin allow-list.
type CORSPolicy struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is how long, in seconds, browsers may cache a preflight
	// answer. Zero omits the header.
	MaxAge int `yaml:"max_age"`
}

// Validate rejects an empty policy and wildcard origins; the API only
// serves known frontends.
func (p CORSPolicy) Validate() error {
	if len(p.AllowedOrigins) == 0 {
		return errs.New(errs.ErrKindConfig, "cors: at least one allowed origin is required")
	}
	for _, o := range p.AllowedOrigins {
		if o == "*" {
			return errs.New(errs.ErrKindConfig, "cors: wildcard origin is not supported")
		}
	}
	if len(p.AllowedMethods) == 0 {
		return errs.New(errs.ErrKindConfig, "cors: at least one allowed method is required")
	}
	if p.MaxAge < 0 {
		return errs.New(errs.ErrKindConfig, "cors: max_age must not be negative")
	}
	return nil
}

// CORS enforces a CORSPolicy. It holds only lookup sets built at
// construction and is safe for concurrent use.
type CORS struct {
	origins map[string]bool
	methods map[string]bool
	headers map[string]bool

	allowMethods string
	allowHeaders string
	maxAge       string
}

// NewCORS builds the filter for p.
func NewCORS(p CORSPolicy) *CORS {
	c := &CORS{
		origins: make(map[string]bool, len(p.AllowedOrigins)),
		methods: make(map[string]bool, len(p.AllowedMethods)),
		headers: make(map[string]bool, len(p.AllowedHeaders)),
	}
	for _, o := range p.AllowedOrigins {
		c.origins[o] = true
	}
	methods := make([]string, 0, len(p.AllowedMethods))
	for _, m := range p.AllowedMethods {
		m = strings.ToUpper(m)
		c.methods[m] = true
		methods = append(methods, m)
	}
	headers := make([]string, 0, len(p.AllowedHeaders))
	for _, h := range p.AllowedHeaders {
		h = http.CanonicalHeaderKey(h)
		c.headers[strings.ToLower(h)] = true
		headers = append(headers, h)
	}
	c.allowMethods = strings.Join(methods, ", ")
	c.allowHeaders = strings.Join(headers, ", ")
	if p.MaxAge > 0 {
		c.maxAge = strconv.Itoa(p.MaxAge)
	}
	return c
}

// Handler rejects disallowed cross-origin requests before they reach next.
// Requests without an Origin header are not cross-origin and pass through.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Origin")

		if isPreflight(r) {
			c.preflight(w, r, origin)
			return
		}

		if !c.origins[origin] || !c.methods[r.Method] {
			writeError(w, r, errs.New(errs.ErrKindPermissionDenied, "cross-origin request not allowed"))
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", origin)
		next.ServeHTTP(w, r)
	})
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

func (c *CORS) preflight(w http.ResponseWriter, r *http.Request, origin string) {
	h := w.Header()
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	if !c.Allowed(origin, r.Header.Get("Access-Control-Request-Method"), requestedHeaders(r)) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", c.allowMethods)
	if c.allowHeaders != "" {
		h.Set("Access-Control-Allow-Headers", c.allowHeaders)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Allowed reports whether origin may use method with the given request
// headers. Header names are compared case-insensitively.
func (c *CORS) Allowed(origin, method string, headers []string) bool {
	if !c.origins[origin] || !c.methods[strings.ToUpper(method)] {
		return false
	}
	for _, h := range headers {
		if !c.headers[strings.ToLower(h)] {
			return false
		}
	}
	return true
}

// requestedHeaders splits Access-Control-Request-Headers, which browsers
// may send as one comma-separated value or several.
func requestedHeaders(r *http.Request) []string {
	var out []string
	for _, v := range r.Header.Values("Access-Control-Request-Headers") {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				out = append(out, h)
			}
		}
	}
	return out
}
