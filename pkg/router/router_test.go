package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func tag(v string) router.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Tag", v)
			next.ServeHTTP(w, r)
		})
	}
}

func TestGroupsAndNamedRoutes(t *testing.T) {
	r := router.New()
	api := r.Group("/api", tag("api"))
	orders := api.Group("orders", tag("orders"))
	orders.Put("/{id}/status", "orders.status", ok)
	api.Get("/products/geo-search", "products.geo", ok)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/orders/o1/status", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"api", "orders"}, rec.Header().Values("X-Tag"))

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders/o1/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	url, err := r.URL("orders.status", map[string]string{"id": "o1"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/o1/status", url)

	_, err = r.URL("orders.status", nil)
	assert.Error(t, err)
	_, err = r.URL("missing", nil)
	assert.Error(t, err)
}

func TestRoutesTable(t *testing.T) {
	r := router.New()
	r.Post("/api/auth/login", "auth.login", ok)
	r.Get("/health", "health", ok)
	r.Handle("/socket/chat", "ws.chat", http.HandlerFunc(ok))
	r.Delete("/api/chats/{id}", "", ok)

	routes := r.Routes()
	require.Len(t, routes, 4)
	assert.Equal(t, router.Route{Method: http.MethodPost, Path: "/api/auth/login", Name: "auth.login"}, routes[0])
	assert.Equal(t, "/api/chats/{id}", routes[1].Path)
	assert.Equal(t, "ANY", routes[3].Method)

	_, named := r.Path("")
	assert.False(t, named)
}
