package middleware

import (
	"net/http"
	"strings"
)

// CustomMethods rewrites a trailing ":<verb>" path suffix (e.g. /sessions/42/credential:verify)
// to "/<verb>" before the request reaches gin, whose router reads ':' as a parameter marker.
func CustomMethods(next http.Handler, verbs ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, verb := range verbs {
			suffix := ":" + verb
			if strings.HasSuffix(r.URL.Path, suffix) {
				r.URL.Path = strings.TrimSuffix(r.URL.Path, suffix) + "/" + verb
				r.URL.RawPath = ""
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}
