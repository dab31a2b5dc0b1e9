package routes_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/app/controllers"
	"github.com/farmdirect/farmdirect/app/routes"
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/router"
)

func newAPI(t *testing.T, health func(context.Context) error) *router.Router {
	t.Helper()
	gql, err := controllers.NewGraphQLController(nil, nil)
	require.NoError(t, err)

	r := router.New()
	routes.API{
		Geo:      controllers.NewGeoController(nil, 20),
		Orders:   controllers.NewOrderController(nil, nil),
		Chats:    controllers.NewChatController(nil, nil),
		Auth:     controllers.NewAuthController(nil),
		Presence: controllers.NewPresenceController(nil),
		GraphQL:  gql,
		Health:   health,
	}.Register(r)
	return r
}

func TestRouteTable(t *testing.T) {
	r := newAPI(t, nil)

	names := map[string]bool{}
	for _, rt := range r.Routes() {
		names[rt.Name] = true
	}
	for _, want := range []string{
		"health", "auth.login", "products.geo_search", "orders.status", "chats.messages.send",
		"realtime.presence", "realtime.presence.users", "realtime.presence.user", "graphql",
		"ws.global", "ws.chat", "ws.order",
	} {
		assert.True(t, names[want], want)
	}

	url, err := r.URL("orders.status", map[string]string{"id": "o1"})
	require.NoError(t, err)
	assert.Equal(t, "/api/orders/o1/status", url)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	h := newAPI(t, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/orders/o1/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := auth.GenerateToken("65f1c0ffee0000000000f001", auth.RoleFarmer)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/realtime/presence/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGeoSearchValidatesBeforeSearching(t *testing.T) {
	rec := httptest.NewRecorder()
	newAPI(t, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/geo-search?lat=200&lng=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newAPI(t, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	down := func(context.Context) error { return errors.New("no reachable servers") }
	rec = httptest.NewRecorder()
	newAPI(t, down).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
