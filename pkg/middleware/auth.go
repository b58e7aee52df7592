// Package middleware holds the fiber middleware shared by the HTTP routes.
package middleware

import (
	"errors"
	"fmt"

	"github.com/budgee/family/pkg/config"
	"github.com/budgee/family/pkg/domain"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const userIDKey = "user_id"

// JwtProtected verifies the bearer token and stores the caller's user id in the
// request locals. The id is read from cfg.UserClaim.
func JwtProtected(cfg config.Jwt) fiber.Handler {
	claim := cfg.UserClaim
	if claim == "" {
		claim = "user_id"
	}
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwt.SigningMethodHS256.Alg(),
			Key:    []byte(cfg.Secret),
		},
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			id, err := userIDFromToken(c, claim)
			if err != nil {
				return problem(c, fiber.StatusUnauthorized, "Unauthorized", err.Error())
			}
			c.Locals(userIDKey, id)
			return c.Next()
		},
	})
}

// UserID returns the id stored by JwtProtected.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return id, nil
}

func userIDFromToken(c *fiber.Ctx, claim string) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing token", domain.ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: unexpected claims", domain.ErrUnauthorized)
	}
	raw, ok := claims[claim].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: claim %q missing", domain.ErrUnauthorized, claim)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: claim %q is not a uuid", domain.ErrUnauthorized, claim)
	}
	return id, nil
}

func jwtError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) || err.Error() == "Missing or malformed JWT" {
		return problem(c, fiber.StatusBadRequest, "Bad Request", "Missing or malformed JWT")
	}
	return problem(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid or expired JWT")
}

func problem(c *fiber.Ctx, status int, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}
