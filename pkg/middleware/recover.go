package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/farmdirect/farmdirect/pkg/logger"
	"github.com/farmdirect/farmdirect/pkg/reqid"
	"github.com/farmdirect/farmdirect/pkg/response"
)

// Recovery turns a handler panic into a 500 envelope that carries the
// request id, so a client report can be matched to the logged stack.
// Mount it inside reqid.Middleware and Logger: the record then goes through
// the request-scoped logger and Logger sees the final 500.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			// net/http uses this to abort a response silently.
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			logger.WithCtx(r.Context()).Error("handler panicked",
				"component", "http",
				"panic", fmt.Sprint(rec),
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			response.InternalErrorWithID(w, reqid.FromCtx(r.Context()))
		}()
		next.ServeHTTP(w, r)
	})
}
