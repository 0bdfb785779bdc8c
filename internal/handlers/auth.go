package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const ownerKey = "owner_id"

type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})),
	}
}

// Authenticate returns the owner carried by a token: the "id" claim, or
// "sub" when there is no id.
func (a *Authenticator) Authenticate(token string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	claims := jwt.MapClaims{}
	t, err := a.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to authenticate token: %w", err)
	}
	if !t.Valid {
		return "", errors.New("failed to parse or validate token")
	}

	if id, ok := claims["id"].(string); ok && id != "" {
		return id, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", errors.New("token has no owner claim")
}

// Middleware rejects requests without a valid bearer token and stores the
// owner in the request locals.
func (a *Authenticator) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, no token")
		}

		owner, err := a.Authenticate(strings.TrimSpace(token))
		if err != nil {
			zap.S().Named("auth").Debugw("rejected token", "error", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Not authorized, token failed")
		}

		c.Locals(ownerKey, owner)
		return c.Next()
	}
}

func ownerFrom(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerKey).(string)
	return owner
}
