package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// Browser defaults for the shop API: the register UI calls it cross-origin
// during development, edits cart lines with PATCH, and scopes its cart with
// the X-Terminal-ID header, so both must clear preflight out of the box.
var (
	defaultAllowMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	defaultAllowHeaders  = []string{"Content-Type", "X-Terminal-ID", "X-Request-ID"}
	defaultExposeHeaders = []string{"X-Request-ID"}
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists origins permitted to call the API. Empty or a
	// single "*" allows any origin.
	AllowOrigins []string

	// AllowMethods overrides the default method list (all verbs the cart
	// and directory endpoints use, PATCH included).
	AllowMethods []string

	// AllowHeaders overrides the default request-header list
	// (Content-Type, X-Terminal-ID, X-Request-ID).
	AllowHeaders []string

	// ExposeHeaders overrides the default response-header list
	// (X-Request-ID).
	ExposeHeaders []string

	// AllowCredentials permits cookies and auth headers. Incompatible with
	// a wildcard origin: when both are set, the wildcard is dropped and
	// the specific origin is echoed instead.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header; negative sends "0" to disable caching.
	MaxAge int
}

// CORS returns a middleware handling cross-origin requests for the API.
// Origin matching is case-insensitive but the configured casing is echoed
// back, and Vary headers are set so shared caches never serve one origin's
// response to another.
func CORS(cfg CORSConfig) Middleware {
	wildcard := len(cfg.AllowOrigins) == 0
	origins := make(map[string]string, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
			break
		}
		origins[strings.ToLower(o)] = o
	}
	if cfg.AllowCredentials {
		// Access-Control-Allow-Origin: * is invalid with credentials.
		wildcard = false
	}

	methods := strings.Join(orDefault(cfg.AllowMethods, defaultAllowMethods), ", ")
	headers := strings.Join(orDefault(cfg.AllowHeaders, defaultAllowHeaders), ", ")
	expose := strings.Join(orDefault(cfg.ExposeHeaders, defaultExposeHeaders), ", ")

	maxAge := ""
	switch {
	case cfg.MaxAge > 0:
		maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		maxAge = "0"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			// Same-origin request. Still vary on Origin so a cache keyed
			// on this URL cannot replay the response cross-origin.
			if origin == "" {
				if !wildcard {
					w.Header().Add("Vary", "Origin")
				}
				next.ServeHTTP(w, r)
				return
			}

			allowOrigin := resolveOrigin(origin, wildcard, origins)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Origin")
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")

				if allowOrigin == "" {
					// Unknown origin: 204 without CORS headers, the
					// browser enforces the denial.
					w.WriteHeader(http.StatusNoContent)
					return
				}

				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if maxAge != "" {
					w.Header().Set("Access-Control-Max-Age", maxAge)
				}

				w.WriteHeader(http.StatusNoContent)
				return
			}

			if !wildcard {
				w.Header().Add("Vary", "Origin")
			}
			if allowOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
				if expose != "" {
					w.Header().Set("Access-Control-Expose-Headers", expose)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func orDefault(values, fallback []string) []string {
	if len(values) > 0 {
		return values
	}
	return fallback
}

// resolveOrigin picks the Access-Control-Allow-Origin value, or "" when the
// origin is not allowed.
func resolveOrigin(origin string, wildcard bool, origins map[string]string) string {
	if wildcard {
		return "*"
	}
	if configured, ok := origins[strings.ToLower(origin)]; ok {
		return configured
	}
	return ""
}
