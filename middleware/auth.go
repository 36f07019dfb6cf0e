package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"inkwell/pkg/httperr"
	"inkwell/pkg/logger"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// CookieName matches the credential carrier the frontend sends on every
// request.
const CookieName = "accessToken"

// Auth verifies the caller's signed token and puts the principal into the
// request context. It runs before any store or cache access, so callers
// without a valid token learn nothing about the resources behind it.
//
// The token is read from the cookie first, then the Authorization header,
// then the query string: the browser's WebSocket API cannot set custom
// headers, so live connections pass the token as a query parameter.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			if c, err := r.Cookie(CookieName); err == nil {
				tokenString = c.Value
			}
			if tokenString == "" {
				authHeader := r.Header.Get("Authorization")
				tokenString = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if tokenString == "" {
				tokenString = r.URL.Query().Get("token")
			}
			if tokenString == "" {
				httperr.Write(w, httperr.Unauthenticated("no token provided"))
				return
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				logger.Sugar.Infof("Invalid token: %v", err)
				httperr.Write(w, httperr.Unauthenticated("invalid or expired token"))
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				httperr.Write(w, httperr.Unauthenticated("could not parse token claims"))
				return
			}
			principal, err := claims.GetSubject()
			if err != nil || principal == "" {
				httperr.Write(w, httperr.Unauthenticated("subject claim is missing"))
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Principal returns the authenticated identity stored by Auth.
func Principal(r *http.Request) string {
	principal, _ := r.Context().Value(PrincipalKey).(string)
	return principal
}
