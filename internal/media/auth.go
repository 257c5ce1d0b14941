package media

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Yonsn76/api-zoomTV/internal/users"
)

var ErrUnauthorized = errors.New("unauthorized")

const (
	tokenBlacklistPrefix = "auth:token:blacklist:"
	authCookieName       = "access_token"
)

type authClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Authorizer turns a bearer token into a Principal. Token issuance lives
// in the auth service; this side only verifies.
type Authorizer struct {
	jwtSecret []byte
	rdb       *redis.Client
	directory users.Directory
}

// NewAuthorizer builds an authorizer. rdb and directory are optional:
// without Redis no blacklist is consulted, without a directory the
// principal is taken from the claims alone.
func NewAuthorizer(jwtSecret []byte, rdb *redis.Client, directory users.Directory) *Authorizer {
	return &Authorizer{
		jwtSecret: jwtSecret,
		rdb:       rdb,
		directory: directory,
	}
}

func (a *Authorizer) Authorize(ctx context.Context, tokenString string) (Principal, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, ErrUnauthorized
	}

	if claims.UserID == "" {
		return Principal{}, ErrUnauthorized
	}

	if a.rdb != nil && claims.ID != "" {
		key := tokenBlacklistPrefix + claims.ID
		exists, redisErr := a.rdb.Exists(ctx, key).Result()
		if redisErr != nil {
			return Principal{}, redisErr
		}
		if exists > 0 {
			return Principal{}, ErrUnauthorized
		}
	}

	role := strings.ToLower(claims.Role)

	if a.directory != nil {
		user, err := a.directory.FindByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, users.ErrNotFound) {
				return Principal{}, ErrUnauthorized
			}
			return Principal{}, err
		}
		if !user.Active {
			return Principal{}, ErrUnauthorized
		}
		if role == "" {
			role = strings.ToLower(user.Role)
		}
	}

	return Principal{UserID: claims.UserID, Role: Role(role)}, nil
}

// TokenFromRequest extracts the bearer token from the Authorization
// header or the auth cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if token, err := extractBearerToken(r.Header.Get("Authorization")); err == nil {
		return token, nil
	}

	if cookie, err := r.Cookie(authCookieName); err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token, nil
		}
	}

	return "", ErrUnauthorized
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrUnauthorized
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrUnauthorized
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrUnauthorized
	}

	return token, nil
}
