// Package ctx provides a single-argument request context for HTTP handlers.
//
// Instead of accepting (http.ResponseWriter, *http.Request), a handler
// receives a *Context with helpers for params, queries, binding and the
// JSON envelope:
//
//	func Show(c *ctx.Context) {
//	    id := c.Param("id")
//	    c.Success(order)
//	}
//
//	router.Get("/orders/{id}", "orders.show", ctx.Wrap(Show))
package ctx

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/farmdirect/farmdirect/pkg/auth"
	"github.com/farmdirect/farmdirect/pkg/bind"
	"github.com/farmdirect/farmdirect/pkg/middleware"
	"github.com/farmdirect/farmdirect/pkg/response"
	"github.com/farmdirect/farmdirect/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc so it can be
// passed to any router method.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W     http.ResponseWriter
	R     *http.Request
	mu    sync.RWMutex
	store map[string]any
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a trimmed query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return strings.TrimSpace(c.R.URL.Query().Get(key))
}

// DefaultQuery returns a query-string value, or def if it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryFloat parses key as a float. ok is false when the key is absent or
// unparseable.
func (c *Context) QueryFloat(key string) (f float64, ok bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// QueryFloatPtr is QueryFloat for optional filters: nil when absent.
func (c *Context) QueryFloatPtr(key string) *float64 {
	if f, ok := c.QueryFloat(key); ok {
		return &f
	}
	return nil
}

// QueryInt parses key as a positive int, falling back to def.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Header returns the value of a request header.
func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Claims returns the authenticated caller, if any.
func (c *Context) Claims() (*auth.Claims, bool) {
	return middleware.ClaimsFromCtx(c.R)
}

// UserID returns the authenticated user's id, or "".
func (c *Context) UserID() string {
	id, _ := middleware.UserIDFromCtx(c.R)
	return id
}

// Role returns the authenticated user's role, or "".
func (c *Context) Role() string {
	role, _ := middleware.RoleFromCtx(c.R)
	return role
}

// Set stores a value in the per-request key-value store.
func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

// Get retrieves a value from the per-request store.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// MustGet retrieves a value from the store and panics if the key is absent.
func (c *Context) MustGet(key string) any {
	v, ok := c.Get(key)
	if !ok {
		panic(fmt.Sprintf("ctx: key %q not found in store", key))
	}
	return v
}

// GetString returns a string value from the store, or "" if absent/wrong type.
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// BindJSON decodes the JSON body into dest and runs validation.
// On validation failure it sends a 422 and returns false; on a decode
// error it sends a 400. Returns true only when dest is ready to use.
//
//	var input StatusInput
//	if !c.BindJSON(&input) {
//	    return // response already sent
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// ShouldBindJSON decodes and validates without writing a response.
func (c *Context) ShouldBindJSON(dest any) (map[string]string, error) {
	return bind.JSON(c.R, dest)
}

// JSON writes v as-is with the given status code.
func (c *Context) JSON(code int, v any) { response.JSON(c.W, code, v) }

// Success sends a 200 envelope.
func (c *Context) Success(data any) { response.Success(c.W, data) }

// Created sends a 201 envelope.
func (c *Context) Created(data any) { response.Created(c.W, data) }

// Message sends a success envelope with a human-readable message.
func (c *Context) Message(code int, message string, data any) {
	response.WithMessage(c.W, code, message, data)
}

// Error sends an error envelope with the given status and message.
func (c *Context) Error(code int, message string) { response.Error(c.W, code, message) }

// BadRequest sends a 400 with message.
func (c *Context) BadRequest(message string) { response.BadRequest(c.W, message) }

// ValidationError sends a 422 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) { response.ValidationError(c.W, errs) }

// Paginated sends a list envelope: data holds the list under key, the
// pagination block and any extra keys.
func (c *Context) Paginated(key string, list any, p response.Pagination, extra map[string]any) {
	response.Paginated(c.W, key, list, p, extra)
}

// Unauthorized sends a 401.
func (c *Context) Unauthorized(message ...string) {
	c.withDefault(http.StatusUnauthorized, "Unauthorized", message)
}

// Forbidden sends a 403.
func (c *Context) Forbidden(message ...string) {
	c.withDefault(http.StatusForbidden, "Forbidden", message)
}

// NotFound sends a 404.
func (c *Context) NotFound(message ...string) {
	c.withDefault(http.StatusNotFound, "Not found", message)
}

// InternalError sends a 500 without leaking the cause.
func (c *Context) InternalError() { response.InternalError(c.W) }

func (c *Context) withDefault(code int, def string, message []string) {
	if len(message) > 0 {
		def = message[0]
	}
	c.Error(code, def)
}
