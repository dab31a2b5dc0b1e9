package controllers

import (
	"sort"

	"github.com/farmdirect/farmdirect/pkg/ctx"
	"github.com/farmdirect/farmdirect/pkg/realtime"
)

// PresenceReader is the query side of the realtime router.
type PresenceReader interface {
	IsUserOnline(userID string) bool
	OnlineUsersCount() int
	ConnectedUsers() []string
	ConnectionsByNamespace() map[realtime.Namespace]int
}

type PresenceController struct {
	presence PresenceReader
}

func NewPresenceController(presence PresenceReader) *PresenceController {
	return &PresenceController{presence: presence}
}

// Summary handles GET /api/realtime/presence.
func (p *PresenceController) Summary(c *ctx.Context) {
	conns := make(map[string]int)
	for ns, n := range p.presence.ConnectionsByNamespace() {
		conns[string(ns)] = n
	}
	c.Success(map[string]any{
		"onlineUsers": p.presence.OnlineUsersCount(),
		"connections": conns,
	})
}

// Users handles GET /api/realtime/presence/users (admin only).
func (p *PresenceController) Users(c *ctx.Context) {
	users := p.presence.ConnectedUsers()
	if users == nil {
		users = []string{}
	}
	sort.Strings(users)
	c.Success(map[string]any{"users": users})
}

// User handles GET /api/realtime/presence/{userId}.
func (p *PresenceController) User(c *ctx.Context) {
	id := c.Param("userId")
	c.Success(map[string]any{"userId": id, "online": p.presence.IsUserOnline(id)})
}
