package controllers

import (
	"context"
	"net/http"

	"github.com/farmdirect/farmdirect/app/services"
	"github.com/farmdirect/farmdirect/pkg/ctx"
)

type Authenticator interface {
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
}

type AuthController struct {
	auth Authenticator
}

func NewAuthController(auth Authenticator) *AuthController {
	return &AuthController{auth: auth}
}

type loginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (a *AuthController) Login(c *ctx.Context) {
	var in loginInput
	if _, err := c.ShouldBindJSON(&in); err != nil {
		c.BadRequest(err.Error())
		return
	}

	res, err := a.auth.Login(c.Context(), in.Email, in.Password)
	if err != nil {
		fail(c, err, "User")
		return
	}
	c.Message(http.StatusOK, "Login successful", res)
}
