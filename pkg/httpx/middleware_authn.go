package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pulsefeed/pulse/pkg/apierr"
	"github.com/pulsefeed/pulse/pkg/jwtx"
	"github.com/pulsefeed/pulse/pkg/slogx"
)

// AuthnMiddleware is the gateway auth guard. It extracts a bearer access
// token, verifies it, and attaches the decoded identity to the request
// context. Rejection reasons are classified in priority order: a missing
// header is reported as missing, not expired; expiry is distinguished from
// other verification failures so clients know a refresh may help.
func AuthnMiddleware(v *jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" {
				apierr.ErrMissingToken.Write(w)
				return
			}
			if !strings.HasPrefix(authz, "Bearer ") {
				apierr.ErrInvalidToken.Write(w)
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("access token rejected", "err", err)
				if errors.Is(err, jwtx.ErrExpired) {
					apierr.ErrTokenExpired.Write(w)
					return
				}
				apierr.ErrInvalidToken.Write(w)
				return
			}

			ctx = contextWithIdentity(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithIdentity(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyEmail, c.Email)
	ctx = context.WithValue(ctx, CtxKeyRole, c.Role)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}
