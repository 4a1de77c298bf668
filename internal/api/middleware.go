package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/confdesk/confdesk/internal/metrics"
	"github.com/confdesk/confdesk/internal/session"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// WithSession loads (or creates) the request's session and puts it on the
// request context.
func WithSession(sessions *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(w, r)
			if err != nil {
				log.Error().Err(err).Msg("Failed to load session")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}

// MethodOverride rewrites POST requests carrying a _method form field into
// the verb HTML forms cannot send themselves.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			switch r.PostFormValue("_method") {
			case http.MethodPut:
				r.Method = http.MethodPut
			case http.MethodPatch:
				r.Method = http.MethodPatch
			case http.MethodDelete:
				r.Method = http.MethodDelete
			}
		}
		next.ServeHTTP(w, r)
	})
}

// VerifyCSRF rejects mutating requests whose _token field does not match
// the session's anti-forgery token.
func VerifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		sess := session.FromContext(r.Context())
		if sess == nil || !sess.VerifyToken(r.PostFormValue("_token")) {
			log.Warn().Str("path", r.URL.Path).Msg("Rejected request with bad anti-forgery token")
			http.Error(w, "Page expired", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth redirects anonymous clients to the login form, remembering
// where they were headed.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil || !sess.Authenticated() {
			if sess != nil {
				sess.SetIntended(r.URL.RequestURI())
				if err := sess.Flush(); err != nil {
					log.Error().Err(err).Msg("Failed to store intended URL")
				}
			}
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CountRequests records one prometheus sample per handled request, labeled
// by chi route pattern and status class.
func CountRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			status := strconv.Itoa(ww.Status()/100) + "xx"
			metrics.RequestsTotal.WithLabelValues(route, status).Inc()
			log.Debug().
				Str("method", r.Method).
				Str("route", route).
				Int("status", ww.Status()).
				Str("duration", fmt.Sprintf("%v", time.Since(start))).
				Msg("Request handled")
		}()
		next.ServeHTTP(ww, r)
	})
}
