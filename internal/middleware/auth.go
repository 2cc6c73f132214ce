package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pkordes/routetracker/internal/domain"
)

// Claims is the bearer token payload issued by the authentication service:
// the subject is the decimal user id and role is "admin" or "user".
type Claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

type actorKey struct{}

// ActorFromContext returns the authenticated actor stored by NewAuthenticator.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// NewAuthenticator returns a middleware that verifies an HS256 bearer token
// signed with secret and stores the resulting domain.Actor in the request
// context. Requests without a valid, unexpired token get 401.
func NewAuthenticator(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			actor, err := parseActor(parser, keyFunc, raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func parseActor(parser *jwt.Parser, keyFunc jwt.Keyfunc, raw string) (domain.Actor, error) {
	var claims Claims
	if _, err := parser.ParseWithClaims(raw, &claims, keyFunc); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Actor{}, errors.New("token expired")
		}
		return domain.Actor{}, errors.New("invalid token")
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("invalid subject %q", claims.Subject)
	}
	if !claims.Role.Valid() {
		return domain.Actor{}, fmt.Errorf("invalid role %q", claims.Role)
	}
	return domain.Actor{UserID: id, Role: claims.Role}, nil
}
