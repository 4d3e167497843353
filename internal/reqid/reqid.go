// Package reqid assigns a correlation id to each inbound HTTP request, for
// linking a request's log lines and its response together.
package reqid

import (
	"context"
	"net/http"

	"github.com/utubettl/utubettl/pkg/id"
)

type ctxKey struct{}

// Header is the response/request header carrying the correlation id.
const Header = "X-Request-Id"

var gen = id.NewGenerator()

// FromContext returns the correlation id from ctx, or the zero value if none was
// attached.
func FromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// Middleware assigns a fresh id.Generator id to every request that doesn't
// already carry one via the X-Request-Id header, echoes it back on the
// response, and stashes it in the request context for handlers/logging.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(Header)
		if rid == "" {
			rid = gen.Next().String()
		}
		w.Header().Set(Header, rid)
		ctx := context.WithValue(r.Context(), ctxKey{}, rid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
