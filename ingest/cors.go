package ingest

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
)

// CORS lets browsers post events from allowedOrigins. "*" allows any
// origin and entries like "https://*.example.com" are matched as globs.
// Requests without an Origin header pass through untouched.
func CORS(allowedOrigins []string) Middleware {
	originAllowed := checkOriginFunc(allowedOrigins)

	m := func(handler Handler) Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return handler(ctx, w, r)
			}

			if !originAllowed(origin) {
				return NewError(http.StatusForbidden, fmt.Errorf("CORS origin[%s] not allowed", origin))
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Traceparent")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				return respond(ctx, w, http.StatusNoContent, nil)
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}

// checkOriginFunc splits comma separated entries and returns a matcher
// for the resulting exact and wildcard origins.
func checkOriginFunc(allowedOrigins []string) func(string) bool {
	allowed := make(map[string]bool)
	var wildcards []string

	for _, entry := range allowedOrigins {
		for o := range strings.SplitSeq(entry, ",") {
			o = strings.TrimSpace(o)
			switch {
			case o == "":
			case o == "*":
				allowed["*"] = true
			case strings.Contains(o, "*"):
				wildcards = append(wildcards, o)
			default:
				allowed[o] = true
			}
		}
	}
	allowAll := allowed["*"]

	return func(origin string) bool {
		if allowAll || allowed[origin] {
			return true
		}
		for _, w := range wildcards {
			if ok, err := path.Match(w, origin); ok && err == nil {
				return true
			}
		}
		return false
	}
}

// noContent answers preflight requests that reach the router.
func noContent(ctx context.Context, w http.ResponseWriter, _ *http.Request) error {
	return respond(ctx, w, http.StatusNoContent, nil)
}
