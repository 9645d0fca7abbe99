package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalUserID   = "user_id"
	LocalUserName = "user_name"

	// QueryToken carries the access token where a client cannot set headers,
	// as on a browser WebSocket handshake.
	QueryToken = "access_token"
)

// JWTMiddleware validates bearer tokens and stores the climber's id and
// display name in locals.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		return authenticate(c, bearerFromHeader(c.Get("Authorization")), secretBytes)
	}
}

// JWTQueryMiddleware is JWTMiddleware that also accepts the token in the
// access_token query parameter. The header wins when both are set.
func JWTQueryMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			token = strings.TrimSpace(c.Query(QueryToken))
		}
		return authenticate(c, token, secretBytes)
	}
}

func authenticate(c *fiber.Ctx, token string, secret []byte) error {
	if token == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}

	claims, err := parseClaims(token, secret, parseMiddlewareClaimsFn)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	c.Locals(LocalUserID, claims.UserID)
	c.Locals(LocalUserName, claims.Name)
	return c.Next()
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

// UserFromCtx returns the identity stored by JWTMiddleware.
func UserFromCtx(c *fiber.Ctx) (id, name string) {
	id, _ = c.Locals(LocalUserID).(string)
	name, _ = c.Locals(LocalUserName).(string)
	return id, name
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
