// Package kernel assembles the HTTP handler: global middleware first, then
// the application routes.
package kernel

import (
	"net/http"
	"time"

	"github.com/farmdirect/farmdirect/config"
	"github.com/farmdirect/farmdirect/pkg/metrics"
	"github.com/farmdirect/farmdirect/pkg/middleware"
	"github.com/farmdirect/farmdirect/pkg/reqid"
	"github.com/farmdirect/farmdirect/pkg/router"
)

// HTTPKernel owns the router and its global middleware.
type HTTPKernel struct {
	router *router.Router
}

// NewHTTPKernel builds the router and hands it to each registration func.
func NewHTTPKernel(register ...func(r *router.Router)) *HTTPKernel {
	r := router.New()

	// Global middleware, outermost first. Metrics wraps everything so the
	// latency histogram sees the full request; Recovery sits inside Logger
	// so a panic is logged with its request id and counted as a 500.
	r.Use(metrics.Middleware())
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(middleware.CORSFromConfig()))
	r.Use(middleware.RateLimit(config.RateLimitPerMinute(), time.Minute))

	r.Get("/metrics", "metrics", metrics.Handler())

	for _, fn := range register {
		fn(r)
	}
	return &HTTPKernel{router: r}
}

// Handler returns the root http.Handler.
func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Router exposes the route table, e.g. for route:list.
func (k *HTTPKernel) Router() *router.Router { return k.router }
