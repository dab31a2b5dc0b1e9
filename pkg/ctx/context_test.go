package ctx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmdirect/farmdirect/pkg/auth"
	appctx "github.com/farmdirect/farmdirect/pkg/ctx"
	"github.com/farmdirect/farmdirect/pkg/middleware"
)

func serve(req *http.Request, h appctx.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	appctx.Wrap(h)(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Success(map[string]any{"id": "o1"})
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"id": "o1"}, body["data"])
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?lat=28.61&lng=abc&page=3&limit=-2&q=+tomato+", nil)
	serve(req, func(c *appctx.Context) {
		lat, ok := c.QueryFloat("lat")
		assert.True(t, ok)
		assert.Equal(t, 28.61, lat)

		_, ok = c.QueryFloat("lng")
		assert.False(t, ok)
		assert.Nil(t, c.QueryFloatPtr("minPrice"))
		require.NotNil(t, c.QueryFloatPtr("lat"))

		assert.Equal(t, 3, c.QueryInt("page", 1))
		assert.Equal(t, 20, c.QueryInt("limit", 20))
		assert.Equal(t, "tomato", c.Query("q"))
		assert.Equal(t, "distance", c.DefaultQuery("sortBy", "distance"))
	})
}

func TestClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	serve(req, func(c *appctx.Context) {
		_, ok := c.Claims()
		assert.False(t, ok)
		assert.Empty(t, c.UserID())
	})

	claims := &auth.Claims{UserID: "u1", Role: auth.RoleFarmer}
	req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	serve(req, func(c *appctx.Context) {
		assert.Equal(t, "u1", c.UserID())
		assert.Equal(t, auth.RoleFarmer, c.Role())
	})
}

func TestSetAndGet(t *testing.T) {
	serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Set("order", "o1")
		assert.Equal(t, "o1", c.GetString("order"))
		assert.Equal(t, "o1", c.MustGet("order"))
		assert.Panics(t, func() { c.MustGet("missing") })
	})
}

func TestBindJSON(t *testing.T) {
	type input struct {
		Status string `json:"status" validate:"required,in=CONFIRMED,PACKED"`
	}

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":"PACKED"}`))
	rec := serve(req, func(c *appctx.Context) {
		var in input
		require.True(t, c.BindJSON(&in))
		assert.Equal(t, "PACKED", in.Status)
		c.Success(nil)
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":""}`))
	rec = serve(req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"status":`))
	rec = serve(req, func(c *appctx.Context) {
		var in input
		assert.False(t, c.BindJSON(&in))
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorDefaults(t *testing.T) {
	rec := serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.NotFound()
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", decode(t, rec)["message"])

	rec = serve(httptest.NewRequest(http.MethodGet, "/", nil), func(c *appctx.Context) {
		c.Forbidden("Only farmers and admins can update order status")
	})
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Only farmers and admins can update order status", body["message"])
}
