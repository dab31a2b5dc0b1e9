// Package controllers adapts HTTP requests to the application services.
package controllers

import (
	"context"
	"errors"

	"github.com/farmdirect/farmdirect/app/repositories"
	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/ctx"
	"github.com/farmdirect/farmdirect/pkg/logger"
)

// Identity resolves the authenticated user behind a token.
type Identity interface {
	Caller(ctx context.Context, userID string) (services.Caller, error)
}

// fail writes err as an error envelope. resource names the entity in 404s.
func fail(c *ctx.Context, err error, resource string) {
	var (
		svcErr  *services.Error
		moveErr *services.TransitionError
	)
	switch {
	case errors.As(err, &moveErr):
		c.BadRequest(moveErr.Error())
	case errors.As(err, &svcErr):
		if errors.Is(svcErr.Kind, services.ErrForbidden) {
			c.Forbidden(svcErr.Message)
			return
		}
		c.BadRequest(svcErr.Message)
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden("Access denied")
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid email or password")
	case errors.Is(err, repositories.ErrNotFound):
		c.NotFound(resource + " not found")
	default:
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.R.Method, "path", c.R.URL.Path, "error", err)
		c.InternalError()
	}
}

// caller loads the authenticated user. A token for a deleted account is
// treated as unauthenticated.
func caller(c *ctx.Context, ids Identity) (services.Caller, bool) {
	who, err := ids.Caller(c.Context(), c.UserID())
	if errors.Is(err, repositories.ErrNotFound) {
		c.Unauthorized("User not found")
		return services.Caller{}, false
	}
	if err != nil {
		fail(c, err, "User")
		return services.Caller{}, false
	}
	return who, true
}
