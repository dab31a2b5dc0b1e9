package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/farmdirect/farmdirect/app/controllers"
	"github.com/farmdirect/farmdirect/pkg/auth"
)

func TestPresenceSummary(t *testing.T) {
	p := controllers.NewPresenceController(fakePresence{online: map[string]bool{"u2": true, "u1": true}})

	code, body := do(t, wrap(p.Summary), call{method: http.MethodGet, target: "/api/realtime/presence", claims: farmer})
	assert.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Equal(t, 2.0, data["onlineUsers"])
	assert.Equal(t, 1.0, data["connections"].(map[string]any)["chat"])
	assert.NotContains(t, data, "users")

}

func TestPresenceUsers(t *testing.T) {
	p := controllers.NewPresenceController(fakePresence{online: map[string]bool{"u2": true, "u1": true}})
	admin := &auth.Claims{UserID: "a1", Role: auth.RoleAdmin}
	_, body := do(t, wrap(p.Users), call{method: http.MethodGet, target: "/api/realtime/presence/users", claims: admin})
	assert.Equal(t, []any{"u1", "u2"}, body["data"].(map[string]any)["users"])

	p = controllers.NewPresenceController(fakePresence{})
	_, body = do(t, wrap(p.Users), call{method: http.MethodGet, target: "/api/realtime/presence/users", claims: admin})
	assert.Equal(t, []any{}, body["data"].(map[string]any)["users"])
}

func TestPresenceUser(t *testing.T) {
	p := controllers.NewPresenceController(fakePresence{online: map[string]bool{"u1": true}})

	_, body := do(t, wrap(p.User), call{
		method: http.MethodGet, target: "/api/realtime/presence/u1", claims: farmer, params: map[string]string{"userId": "u1"},
	})
	assert.Equal(t, true, body["data"].(map[string]any)["online"])

	_, body = do(t, wrap(p.User), call{
		method: http.MethodGet, target: "/api/realtime/presence/u9", claims: farmer, params: map[string]string{"userId": "u9"},
	})
	assert.Equal(t, false, body["data"].(map[string]any)["online"])
}
