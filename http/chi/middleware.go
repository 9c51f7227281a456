// Package chi adapts the x402 payment middleware to chi routers. chi
// middleware is stdlib-compatible, so the adapter reuses the core
// net/http middleware and only adds a CORS preflight bypass.
package chi

import (
	"net/http"

	x402http "github.com/x402dev/x402-go/http"
)

// Middleware creates chi-compatible middleware that gates matching routes
// behind payment. OPTIONS requests bypass payment so CORS preflight
// never sees a 402.
func Middleware(config x402http.Config) (func(http.Handler) http.Handler, error) {
	payment, err := x402http.NewPaymentMiddleware(config)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		gated := payment(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			gated.ServeHTTP(w, r)
		})
	}, nil
}
