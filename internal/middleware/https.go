package middleware

import "net/http"

// HTTPSRedirect sends plain-HTTP requests arriving through the proxy to https://host.
// host falls back to the request host when empty.
func HTTPSRedirect(host string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Forwarded-Proto") == "https" {
				next.ServeHTTP(w, r)
				return
			}

			target := host
			if target == "" {
				target = r.Host
			}
			http.Redirect(w, r, "https://"+target+r.URL.RequestURI(), http.StatusMovedPermanently)
		})
	}
}
