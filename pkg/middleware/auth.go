package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"smstudio/pkg/authz"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/logger"
	"smstudio/pkg/model"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	roleClaim = "role"
)

// Claims is the token payload the API accepts. The subject is the profile id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func ActorFromContext(ctx context.Context) (authz.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(authz.Actor)
	return actor, ok
}

func WithActor(ctx context.Context, actor authz.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Authentication resolves the acting profile for every request except the
// public paths. With a secret configured it requires an HS256 bearer token.
// Without one it trusts the X-User-ID and X-User-Role headers, which is only
// meant for local development behind a gateway.
func Authentication(secret string, log *logger.Logger, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}
	if secret == "" {
		log.Warn("JWT secret not configured, trusting identity headers")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			var (
				actor authz.Actor
				err   error
			)
			if secret != "" {
				actor, err = actorFromToken(r.Header.Get("Authorization"), secret)
			} else {
				actor, err = actorFromHeaders(r)
			}
			if err != nil {
				logger.FromContext(r.Context(), log).Warn("Authentication failed",
					"path", r.URL.Path,
					"error", err,
				)
				writeAppError(w, apperrors.Unauthorized("authentication required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

func actorFromHeaders(r *http.Request) (authz.Actor, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return authz.Actor{}, errors.New("missing " + HeaderUserID)
	}
	role := strings.TrimSpace(r.Header.Get(HeaderUserRole))
	if role == "" {
		role = model.RoleCustomer
	}
	if !model.ValidRole(role) {
		return authz.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	return authz.Actor{ID: id, Role: role}, nil
}

func actorFromToken(header, secret string) (authz.Actor, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return authz.Actor{}, errors.New("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return authz.Actor{}, err
	}
	if !token.Valid {
		return authz.Actor{}, errors.New("invalid token")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return authz.Actor{}, errors.New("token has no subject")
	}
	role := claims.Role
	if role == "" {
		role = model.RoleCustomer
	}
	if !model.ValidRole(role) {
		return authz.Actor{}, fmt.Errorf("unknown %s claim %q", roleClaim, role)
	}
	return authz.Actor{ID: sub, Role: role}, nil
}

// IssueToken signs an HS256 token for the given profile.
func IssueToken(secret, profileID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
