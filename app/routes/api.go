// Package routes maps URLs to controllers.
package routes

import (
	"context"
	"net/http"

	"github.com/farmdirect/farmdirect/app/controllers"
	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/ctx"
	"github.com/farmdirect/farmdirect/pkg/middleware"
	"github.com/farmdirect/farmdirect/pkg/rbac"
	"github.com/farmdirect/farmdirect/pkg/realtime"
	"github.com/farmdirect/farmdirect/pkg/response"
	"github.com/farmdirect/farmdirect/pkg/router"
	"github.com/farmdirect/farmdirect/pkg/ws"
)

// API holds everything the routes dispatch to.
type API struct {
	Geo      *controllers.GeoController
	Orders   *controllers.OrderController
	Chats    *controllers.ChatController
	Auth     *controllers.AuthController
	Presence *controllers.PresenceController
	GraphQL  *controllers.GraphQLController
	Realtime *realtime.Router
	// Health reports whether the database is reachable. Nil means healthy.
	Health func(ctx context.Context) error
}

// Register mounts the HTTP API, GraphQL and socket endpoints.
func (a API) Register(r *router.Router) {
	r.Get("/health", "health", a.health)

	api := r.Group("/api")
	api.Post("/auth/login", "auth.login", ctx.Wrap(a.Auth.Login))
	api.Get("/products/geo-search", "products.geo_search", ctx.Wrap(a.Geo.Search), middleware.OptionalAuth)

	protected := api.Group("", middleware.Auth)
	protected.Put("/orders/{id}/status", "orders.status", ctx.Wrap(a.Orders.UpdateStatus))
	protected.Post("/chats/{chatId}/messages", "chats.messages.send", ctx.Wrap(a.Chats.Send))
	protected.Get("/realtime/presence", "realtime.presence", ctx.Wrap(a.Presence.Summary))
	protected.Get("/realtime/presence/users", "realtime.presence.users", ctx.Wrap(a.Presence.Users),
		rbac.HasRole(auth.RoleAdmin))
	protected.Get("/realtime/presence/{userId}", "realtime.presence.user", ctx.Wrap(a.Presence.User))

	r.Post("/graphql", "graphql", a.GraphQL.Handler(), middleware.OptionalAuth)

	for _, ns := range realtime.Namespaces {
		r.Handle(ws.Path(ns), "ws."+string(ns), ws.Handler(a.Realtime, ns))
	}
}

func (a API) health(w http.ResponseWriter, r *http.Request) {
	if a.Health != nil {
		if err := a.Health(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	response.Success(w, map[string]string{"status": "ok"})
}
